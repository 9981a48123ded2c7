// Command skyircd is the launcher for the IRC daemon: it reads an
// optional configuration file, loads the MOTD, binds the listener, and
// runs until a signal or a client's RESTART asks it to stop.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/horgh/config"
	"github.com/pkg/errors"

	"github.com/skywodd/skyircd/internal/ircd"
)

// Args are the launcher's command line arguments: two positional
// arguments (bind address and port) plus optional config and MOTD file
// flags.
type Args struct {
	BindAddress string
	Port        string
	ConfigFile  string
	MOTDFile    string
}

func getArgs() (*Args, error) {
	configFile := flag.String("conf", "", "Optional key=value configuration file.")
	motdFile := flag.String("motd", "", "Optional message-of-the-day file.")

	flag.Parse()

	if flag.NArg() != 2 {
		return nil, errors.Errorf("usage: %s [-conf file] [-motd file] <bind-address> <port>", os.Args[0])
	}

	return &Args{
		BindAddress: flag.Arg(0),
		Port:        flag.Arg(1),
		ConfigFile:  *configFile,
		MOTDFile:    *motdFile,
	}, nil
}

func main() {
	os.Exit(run())
}

// listenerCloser stops the accept loop when the server begins shutting
// down, whether that was triggered by a signal or a client's RESTART.
type listenerCloser struct {
	ln *ircd.Listener
}

func (l listenerCloser) ServerShuttingDown() {
	_ = l.ln.Close()
}

// run does the real work and returns a process exit code, keeping
// main itself trivial and letting tests exercise buildConfig/loadMOTD
// without touching os.Exit.
func run() int {
	args, err := getArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := buildConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	srv := ircd.NewServer(cfg)

	addr := args.BindAddress + ":" + args.Port
	ln, err := ircd.Listen(srv, addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "starting listener"))
		return 1
	}

	// A client's RESTART reaches us through the shutdown hook; it has to
	// stop the accept loop the same way a signal does or the process
	// would keep serving forever.
	srv.Shutdown = listenerCloser{ln}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		srv.BeginShutdown(fmt.Sprintf("Server shutting down (%s)", sig))
	}()

	ln.Serve()
	srv.Wait()

	return 0
}

// buildConfig assembles the core's Config from defaults, an optional
// key=value config file (via github.com/horgh/config), and an optional
// MOTD file. The core itself never touches a file; all file I/O stays
// here in the launcher.
func buildConfig(args *Args) (ircd.Config, error) {
	cfg := ircd.DefaultConfig(args.BindAddress)
	motdFile := args.MOTDFile

	if args.ConfigFile != "" {
		raw, err := config.ReadStringMap(args.ConfigFile)
		if err != nil {
			return ircd.Config{}, errors.Wrap(err, "reading config file")
		}

		cfg, err = ircd.ApplyConfigMap(cfg, raw)
		if err != nil {
			return ircd.Config{}, errors.Wrap(err, "applying config file")
		}

		// motd_filename names the file on disk; reading it is the
		// launcher's job, not the core's, so it is handled here rather
		// than inside ApplyConfigMap. The -motd flag wins if both are
		// given.
		if motdFile == "" {
			motdFile = raw["motd_filename"]
		}
	}

	if motdFile != "" {
		cfg.SendMOTD = true
		lines, err := loadMOTD(motdFile)
		if err != nil {
			// A missing MOTD file isn't a startup error, it degrades to
			// ERR_FILEERROR/ERR_NOMOTD at welcome time.
			cfg.MOTDFileSeen = false
			return cfg, nil
		}
		cfg.MOTDFileSeen = true
		cfg.MOTDLines = lines
	}

	return cfg, nil
}

func loadMOTD(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return splitLines(string(data)), nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
