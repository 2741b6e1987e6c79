// Command dbms-cli is the interactive shell: it reads SQL-like commands
// from stdin (until ';') and executes them against a session. The -u/-p
// flags are parsed for the log records; authentication is advisory.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	dbms "github.com/elerspay/DBMS"
	"github.com/elerspay/DBMS/config"
	"github.com/elerspay/DBMS/logging"
)

func main() {
	user := pflag.StringP("user", "u", "root", "user name recorded in the operation log")
	_ = pflag.StringP("password", "p", "", "password (advisory; not verified)")
	cfgPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Error] %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Error] %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	session, err := dbms.NewSession(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Error] %v\n", err)
		os.Exit(1)
	}
	defer session.Close()
	session.SetUser(*user)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dbms> ",
		HistoryFile:     os.TempDir() + "/dbms-cli.history",
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[Error] %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	var pending strings.Builder
	for {
		if pending.Len() > 0 {
			rl.SetPrompt("  ... ")
		} else {
			rl.SetPrompt("dbms> ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			pending.Reset()
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "[Error] %v\n", err)
			return
		}

		trimmed := strings.TrimSpace(line)
		if pending.Len() == 0 {
			switch strings.ToLower(strings.TrimSuffix(trimmed, ";")) {
			case "":
				continue
			case "exit", "quit":
				return
			}
		}

		pending.WriteString(line)
		pending.WriteString("\n")
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		stmt := pending.String()
		pending.Reset()
		// Errors are already reported on the diagnostic stream; the
		// shell keeps going.
		session.Execute(stmt)
	}
}
