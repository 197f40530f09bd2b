package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/mwalimuhq/ngao/core"
	"github.com/mwalimuhq/ngao/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	conf    *core.Config
	db      *sqlx.DB
	evtRepo core.EventRepository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate                                  - apply pending database migrations")
	fmt.Println("  events [-type TYPE] [-severity SEV] [-limit N] - list recorded security events")
	fmt.Println("  purge [-days N]                          - delete events older than N days (default: retention)")
	fmt.Println("  gensecret                                - generate a new signing secret")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	eventsCmd := flag.NewFlagSet("events", flag.ExitOnError)
	eventsType := eventsCmd.String("type", "", "Filter by event type.")
	eventsSeverity := eventsCmd.String("severity", "", "Filter by severity.")
	eventsLimit := eventsCmd.Int("limit", 50, "Maximum number of events to list.")

	purgeCmd := flag.NewFlagSet("purge", flag.ExitOnError)
	purgeDays := purgeCmd.Int("days", 0, "Purge events older than this many days. 0 uses the configured retention.")

	switch args[1] {
	case "migrate":
		return database.Migrate(cli.db, cli.conf.Database.Engine)
	case "events":
		if err := eventsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listEvents(*eventsType, *eventsSeverity, *eventsLimit)
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return err
		}
		retention := cli.conf.Guard.EventRetention
		if *purgeDays > 0 {
			retention = time.Duration(*purgeDays) * 24 * time.Hour
		}
		return cli.purgeEvents(retention)
	case "gensecret":
		return cli.genSecret()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) listEvents(typ, severity string, limit int) error {
	events, err := cli.evtRepo.FilterEvents(context.Background(), core.EventFilter{
		Type:     typ,
		Severity: severity,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Printf("%s  %-22s %-8s %-36s %s\n",
			ev.Time.Format("2006-01-02 15:04:05"), ev.Type, ev.Severity, ev.UserID, ev.Details)
	}
	fmt.Printf("%d event(s)\n", len(events))
	return nil
}

func (cli *commandLine) purgeEvents(retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	fmt.Printf("This deletes all security events recorded before %s. Type 'yes' to confirm: ", cutoff.Format("2006-01-02"))
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil || answer != "yes" {
		return errAborted
	}

	purged, err := cli.evtRepo.PurgeEventsBefore(context.Background(), cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("%d event(s) purged\n", purged)
	return nil
}

// genSecret prints a fresh signing secret after re-authenticating the operator.
func (cli *commandLine) genSecret() error {
	fmt.Print("Enter current secret key:")
	current, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return err
	}
	if string(current) != cli.conf.SecretKey {
		return errAborted
	}

	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	fmt.Println(base64.RawURLEncoding.EncodeToString(buf))
	return nil
}
