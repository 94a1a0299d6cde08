package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/emx-mail/compose/pkgs/compose"
	"github.com/emx-mail/compose/pkgs/config"
	"github.com/emx-mail/compose/pkgs/logging"
)

const version = "1.0.0"

// app holds global options parsed from the command line
type app struct {
	account string
	envFile string
	logFile string
	verbose bool
}

func main() {
	a := &app{}

	// Global flags
	flag.StringVar(&a.account, "account", "", "Account name or email to use")
	flag.StringVar(&a.envFile, "env-file", "", "Load environment variables from file (default: .env if present)")
	flag.StringVar(&a.logFile, "log-file", "", "Write JSON logs to file instead of stderr")
	flag.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.CommandLine.SetInterspersed(false)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("emx-compose v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	if err := config.LoadEnvFile(a.envFile); err != nil {
		fatal("%v", err)
	}

	switch cmd {
	case "init":
		if err := handleInit(); err != nil {
			fatal("init: %v", err)
		}
		return
	case "help":
		printUsage()
		os.Exit(0)
	}

	action, err := compose.ParseAction(cmd)
	if err != nil {
		fatal("unknown command '%s'", cmd)
	}

	log, flush, err := logging.New(logging.Options{Verbose: a.verbose, File: a.logFile})
	if err != nil {
		fatal("%v", err)
	}
	defer flush()

	acc := a.loadAccount()
	opts := parsePrepareFlags(action, cmdArgs)
	if err := handlePrepare(acc, action, opts, log); err != nil {
		flush()
		fatal("%s: %v", action, err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `emx-compose v%s - Prepare replies and forwards

Usage:
  emx-compose [global options] <command> [command options]

Commands:
  reply      Reply to the sender of a message
  reply-all  Reply to the sender and all recipients of a message
  forward    Forward a message
  compose    Start a new message
  init       Initialize configuration file

Global Options:
  --account <name>   Account name or email to use
  --env-file <path>  Load environment variables from file
  --log-file <path>  Write JSON logs to file
  -v, --verbose      Verbose output
  --version          Show version information

Config Resolution:
  1) If emx-config exists: emx-compose reads config via emx-config list --json.
  2) Otherwise: set env var EMX_MAIL_CONFIG_JSON to a JSON config file.

Reference Message (one of):
  --eml <path>           Raw .eml file
  --dir <dir> --id <id>  Directory of .eml files named after Message-IDs
  --mbox <path> --id <n> Mbox file; id is a 1-based index or a Message-ID
  --uid <uid>            IMAP message UID (with --folder, default INBOX)
  --id <id>              Look up in the account's store.dir or store.mbox

Output Options:
  --format <format>      draft (RFC 5322), html or json (default: draft)
  --output <path>        Output file (default: stdout)
  --save                 Append the draft to the account's drafts mbox
  --from <email>         Send as an alias of the account
  --locale <tag>         Language of labels and attribution (default: account locale)
  --tz <zone>            Time zone of the attribution date (default: message zone)
  --sanitize             Sanitize the quoted HTML body

Examples:
  emx-compose reply --eml message.eml
  emx-compose reply-all --uid 4711 --format json
  emx-compose forward --mbox archive.mbox --id 3 --save
  emx-compose --account work reply --id '<abc@example.com>' --from me@example.org
`, version)
}
