package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/profile"
)

type globals struct {
	profile string
	addr    string
	token   string
	json    bool
}

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	addrFlag := flag.String("addr", "", "daemon address (default: discovered from the profile)")
	tokenFlag := flag.String("token", os.Getenv("PARLEY_TOKEN"), "bearer token (default $PARLEY_TOKEN)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fail(err)
	}
	g := globals{profile: profileName, addr: *addrFlag, token: *tokenFlag, json: *jsonFlag}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Commands that need no daemon connection.
	switch args[0] {
	case "token":
		cmdToken(args[1:], g)
		return
	case "start":
		cmdStart(g)
		return
	}

	addr := g.addr
	if addr == "" {
		var err error
		if addr, err = client.Discover(profileName); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v (start it with: parleyctl start)\n", err)
			os.Exit(1)
		}
	}
	c, err := client.New(addr, g.token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		cmdWatch(c, args[1:], g)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if len(args)-1 < cmd.minArgs {
		fmt.Fprintf(os.Stderr, "usage: parleyctl %s %s\n", args[0], cmd.usage)
		os.Exit(1)
	}
	cmd.run(ctx, c, args[1:], g)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: parleyctl [--profile <name>] [--addr <addr>] [--token <jwt>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  start                          Start the daemon for the profile")
	fmt.Fprintln(os.Stderr, "  token --sub <id> --name <n>    Mint a token from the configured secret")
	fmt.Fprintln(os.Stderr, "  status                         Show daemon status")
	fmt.Fprintln(os.Stderr, "  whoami                         Resolve (and register) the token's user")
	fmt.Fprintln(os.Stderr, "  users [search]                 List other users")
	fmt.Fprintln(os.Stderr, "  dm <external-id>               Open a direct conversation")
	fmt.Fprintln(os.Stderr, "  group <name> <user-id>...      Create a group")
	fmt.Fprintln(os.Stderr, "  ls                             List conversations")
	fmt.Fprintln(os.Stderr, "  peer <conversation>            Show the peer or group members")
	fmt.Fprintln(os.Stderr, "  send <conversation> <text>     Send a message")
	fmt.Fprintln(os.Stderr, "  history <conversation>         List messages")
	fmt.Fprintln(os.Stderr, "  rm <message>                   Delete one of your messages")
	fmt.Fprintln(os.Stderr, "  read <conversation>            Mark a conversation read")
	fmt.Fprintln(os.Stderr, "  react <message> <emoji>        Toggle a reaction")
	fmt.Fprintln(os.Stderr, "  reactions <conversation>       List reactions by message")
	fmt.Fprintln(os.Stderr, "  typing <conversation> [on|off] Set your typing state")
	fmt.Fprintln(os.Stderr, "  who <conversation>             Show who is typing")
	fmt.Fprintln(os.Stderr, "  watch [conversation]           Stream changes with live typing and presence")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
