// Command bridge-sim stands in for the chat bridge during local runs. Every
// stdin line is delivered to the matcher as an inbound message; lines
// starting with "@group " are posted to the drivers group instead. Texts the
// matcher sends back are printed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bridgedto "tujane/internal/matching-service/core/domain/bridge_dto"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

const groupPrefix = "@group "

func main() {
	url := flag.String("url", "ws://localhost:3000/ws/bridge", "matcher bridge endpoint")
	token := flag.String("token", os.Getenv("BRIDGE_TOKEN"), "bridge token, see `tujane token -role bridge`")
	as := flag.String("as", "25779000001@c.us", "identity the simulated messages come from")
	group := flag.String("group", os.Getenv("DRIVERS_GROUP_ID"), "drivers group chat id")
	insecure := flag.Bool("insecure", false, "skip TLS verification for wss://")
	flag.Parse()

	if *token == "" {
		log.Fatal("a bridge token is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := NewWebSocketClient(ctx)
	if err := client.Connect(*url, *insecure); err != nil {
		log.Fatalf("%v", err)
	}
	defer client.Close()

	if err := client.Login(*token); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("%sconnected to %s as %s%s\n", Green, *url, *as, Reset)

	go func() {
		err := client.ReadEvents(printEvent)
		if err != nil {
			fmt.Printf("%s%v%s\n", Red, err, Reset)
		}
		stop()
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			msg := bridgedto.Inbound{ChatID: *as, Body: line, Timestamp: time.Now()}
			if rest, isGroup := strings.CutPrefix(line, groupPrefix); isGroup {
				msg = bridgedto.Inbound{ChatID: *group, Author: *as, Body: rest, IsGroup: true, Timestamp: time.Now()}
			}
			if err := client.Send(bridgedto.TypeInbound, msg); err != nil {
				fmt.Printf("%s%v%s\n", Red, err, Reset)
				return
			}
		}
	}
}

func printEvent(ev bridgedto.Event) error {
	switch ev.Type {
	case bridgedto.TypeOutbound:
		out, err := decode[bridgedto.Outbound](ev)
		if err != nil {
			return err
		}
		fmt.Printf("%s-> %s%s\n%s\n", Cyan, out.To, Reset, out.Text)
		if out.Attachment != nil {
			fmt.Printf("%s   [%s] %s%s\n", Yellow, out.Attachment.Filename, out.Attachment.URL, Reset)
		}
	case bridgedto.TypeBroadcast:
		b, err := decode[bridgedto.Broadcast](ev)
		if err != nil {
			return err
		}
		fmt.Printf("%s=> %s%s\n%s\n", Green, b.Group, Reset, b.Text)
	case bridgedto.TypeError:
		fmt.Printf("%serror: %s%s\n", Red, string(ev.Data), Reset)
	default:
		fmt.Printf("%s%s: %s%s\n", Yellow, ev.Type, string(ev.Data), Reset)
	}
	return nil
}
