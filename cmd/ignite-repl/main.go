// Command ignite-repl is an interactive shell over an ignite store: put,
// get, delete, list keys, check membership, and inspect stats from a
// terminal, backed by github.com/peterh/liner for history and editing.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/ignite-kv/ignite/pkg/ignite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("ignite-repl", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "store data directory (overrides config)")
	configPath := fs.String("config", "", "path to an HJSON config file")
	fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	db, err := ignite.NewInstance(context.Background(), "ignite-repl", cfg.asOptions()...)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	repl := &shell{db: db, configPath: *configPath, cfg: cfg}
	return repl.run()
}

type shell struct {
	db         *ignite.Instance
	configPath string
	cfg        config
	liner      *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ignite_repl_history")
}

func (s *shell) run() error {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(s.completer)

	if f, err := os.Open(historyFile()); err == nil {
		s.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("ignite - key/value store shell")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := s.liner.Prompt("ignite> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			s.saveHistory()
			return nil
		case "help", "?":
			printHelp()
		case "put", "set":
			s.cmdPut(args)
		case "get":
			s.cmdGet(args)
		case "del", "delete", "rm":
			s.cmdDelete(args)
		case "contains", "has":
			s.cmdContains(args)
		case "ls", "keys":
			s.cmdListKeys()
		case "stats":
			s.cmdStats()
		case ":save-config":
			s.cmdSaveConfig()
		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	s.saveHistory()
	return nil
}

func (s *shell) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			s.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (s *shell) completer(line string) []string {
	commands := []string{
		"put", "set", "get", "del", "delete", "rm", "contains", "has",
		"ls", "keys", "stats", ":save-config", "help", "exit", "quit", "q",
	}
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	return out
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <value>   Store a key/value pair")
	fmt.Println("  get <key>           Retrieve a value")
	fmt.Println("  del <key>           Delete a key")
	fmt.Println("  contains <key>      Test key membership")
	fmt.Println("  ls                  List every live key")
	fmt.Println("  stats               Show byte counters and amplification")
	fmt.Println("  :save-config        Persist current flags to the config file")
	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
}

func (s *shell) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <value>")
		return
	}
	if err := s.db.Put(args[0], []byte(strings.Join(args[1:], " "))); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (s *shell) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <key>")
		return
	}
	value, ok, err := s.db.Get(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("(not found)")
		return
	}
	fmt.Println(string(value))
}

func (s *shell) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: del <key>")
		return
	}
	if err := s.db.Delete(args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (s *shell) cmdContains(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: contains <key>")
		return
	}
	fmt.Println(s.db.Contains(args[0]))
}

func (s *shell) cmdListKeys() {
	keys, err := s.db.ListKeys()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(keys) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

func (s *shell) cmdStats() {
	st, err := s.db.Stats()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("resident bytes: %d\n", st.ResidentBytes)
	fmt.Printf("on-disk bytes:  %d\n", st.OnDiskBytes)
	fmt.Printf("logged bytes:   %d\n", st.LoggedBytes)
	fmt.Printf("read bytes:     %d\n", st.ReadBytes)
	fmt.Printf("written bytes:  %d\n", st.WrittenBytes)
	fmt.Printf("space amp:      %s\n", strconv.FormatFloat(st.SpaceAmp, 'f', 2, 64))
	fmt.Printf("write amp:      %s\n", strconv.FormatFloat(st.WriteAmp, 'f', 2, 64))
}

func (s *shell) cmdSaveConfig() {
	if s.configPath == "" {
		fmt.Println("no --config path given at startup, nothing to save to")
		return
	}
	if err := saveConfig(s.configPath, s.cfg); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("saved config to %s\n", s.configPath)
}
