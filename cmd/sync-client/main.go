package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"kanjifinder/internal/sync"
)

// Tails the TCP sync feed, printing one line per flashcard event. Useful as a
// second "device" while testing multi-device sync.
func main() {
	addr := flag.String("addr", defaultAddr(), "TCP sync server address")
	raw := flag.Bool("raw", false, "print raw JSON lines instead of summaries")
	flag.Parse()

	for {
		if err := run(*addr, *raw); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if raw {
			fmt.Println(string(line))
			continue
		}

		var ev sync.FlashcardEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
			fmt.Println(string(line))
			continue
		}

		switch ev.Type {
		case sync.EventFlashcardSync:
			fmt.Printf("%s  user %s synced %d cards\n", ev.At.Format(time.RFC3339), ev.UserID, ev.Count)
		case sync.EventFlashcardUpdate:
			fmt.Printf("%s  user %s saved %s (%s)\n", ev.At.Format(time.RFC3339), ev.UserID, ev.Kanji, ev.CardID)
		case sync.EventFlashcardDelete:
			fmt.Printf("%s  user %s deleted %s\n", ev.At.Format(time.RFC3339), ev.UserID, ev.CardID)
		default:
			fmt.Println(string(line))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func defaultAddr() string {
	if a := os.Getenv("KANJIFINDER_SYNC_ADDR"); a != "" {
		return a
	}
	return "127.0.0.1:7070"
}
