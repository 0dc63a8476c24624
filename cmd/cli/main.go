package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"kanjifinder/internal/localstore"
	"kanjifinder/internal/recognize"
	"kanjifinder/internal/syncclient"
	"kanjifinder/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	global := flag.NewFlagSet("kanjifinder", flag.ExitOnError)
	baseURL := global.String("api", apiBaseURL(), "API base URL")
	dataDir := global.String("data", localstore.DefaultDir(), "local data directory")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	store := localstore.New(localstore.NewFileStorage(*dataDir))
	if err := store.Init(); err != nil {
		log.Fatalf("init local store: %v", err)
	}

	session := syncclient.NewSession(filepath.Join(*dataDir, "token.json"))
	remote := syncclient.New(*baseURL, &http.Client{Timeout: 15 * time.Second}, session, store)

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	switch cmd {
	case "auth":
		handleAuth(ctx, remote, sub, args[2:])
	case "card":
		handleCard(store, sub, args[2:])
	case "scan":
		handleScan(ctx, store, args[1:])
	case "lookup":
		handleLookup(ctx, args[1:])
	case "sync":
		handleSync(ctx, remote, *baseURL, sub, args[2:])
	case "export":
		handleExport(store, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, remote *syncclient.Client, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}
		if err := remote.Login(ctx, *email, *password); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}
		if err := remote.Register(ctx, *username, *email, *password); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		fmt.Println("registered and logged in")
	case "logout":
		if err := remote.Logout(); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: kanjifinder auth <login|register|logout>")
	}
}

func handleCard(store *localstore.Store, sub string, args []string) {
	switch sub {
	case "add":
		fs := flag.NewFlagSet("card add", flag.ExitOnError)
		kanji := fs.String("kanji", "", "kanji character")
		meaning := fs.String("meaning", "", "comma-joined English meanings")
		onYomi := fs.String("on", "", "comma-separated on'yomi readings")
		kunYomi := fs.String("kun", "", "comma-separated kun'yomi readings")
		jlpt := fs.String("jlpt", "Unknown", "JLPT level (N5..N1)")
		notes := fs.String("notes", "", "free-text notes")
		tags := fs.String("tags", "", "comma-separated tags")
		_ = fs.Parse(args)
		if *kanji == "" || *meaning == "" {
			log.Fatal("kanji and meaning are required")
		}

		card, err := store.Save(models.Flashcard{
			Kanji:   *kanji,
			Meaning: *meaning,
			Readings: models.Readings{
				OnYomi:  splitList(*onYomi),
				KunYomi: splitList(*kunYomi),
			},
			JLPT:  *jlpt,
			Notes: *notes,
			Tags:  splitList(*tags),
		})
		if err != nil {
			log.Fatalf("save failed: %v", err)
		}
		printJSON(card)
	case "list":
		fs := flag.NewFlagSet("card list", flag.ExitOnError)
		jlpt := fs.String("jlpt", "", "filter by JLPT level")
		tag := fs.String("tag", "", "filter by tag")
		unsynced := fs.Bool("unsynced", false, "only cards waiting for sync")
		_ = fs.Parse(args)

		var (
			cards []models.Flashcard
			err   error
		)
		switch {
		case *unsynced:
			cards, err = store.ListUnsynced()
		case *jlpt != "":
			cards, err = store.ListByJlpt(strings.ToUpper(*jlpt))
		case *tag != "":
			cards, err = store.ListByTag(*tag)
		default:
			cards, err = store.List()
		}
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printCards(cards)
	case "show":
		fs := flag.NewFlagSet("card show", flag.ExitOnError)
		id := fs.String("id", "", "card id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("card id is required")
		}

		card, err := store.GetByID(*id)
		if err != nil {
			log.Fatalf("show failed: %v", err)
		}
		if card == nil {
			log.Fatalf("no card with id %s", *id)
		}
		printJSON(card)
	case "edit":
		fs := flag.NewFlagSet("card edit", flag.ExitOnError)
		id := fs.String("id", "", "card id")
		notes := fs.String("notes", "", "replace notes")
		mnemonic := fs.String("mnemonic", "", "replace mnemonic")
		tags := fs.String("tags", "", "replace tags (comma-separated)")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("card id is required")
		}

		card, err := store.GetByID(*id)
		if err != nil {
			log.Fatalf("edit failed: %v", err)
		}
		if card == nil {
			log.Fatalf("no card with id %s", *id)
		}

		if *notes != "" {
			card.Notes = *notes
		}
		if *mnemonic != "" {
			card.Mnemonic = *mnemonic
		}
		if *tags != "" {
			card.Tags = splitList(*tags)
		}
		// any edit makes the card eligible for the next sync pass
		card.SyncStatus = models.SyncStatusLocal

		saved, err := store.Save(*card)
		if err != nil {
			log.Fatalf("edit failed: %v", err)
		}
		printJSON(saved)
	case "delete":
		fs := flag.NewFlagSet("card delete", flag.ExitOnError)
		id := fs.String("id", "", "card id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("card id is required")
		}

		ok, err := store.Delete(*id)
		if err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		if !ok {
			log.Fatalf("no card with id %s", *id)
		}
		fmt.Println("deleted")
	default:
		log.Fatal("usage: kanjifinder card <add|list|show|edit|delete>")
	}
}

func handleScan(ctx context.Context, store *localstore.Store, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	image := fs.String("image", "", "path to a base64-encoded image file")
	save := fs.Bool("save", true, "save recognized kanji as flashcards")
	_ = fs.Parse(args)
	if *image == "" {
		log.Fatal("image path is required")
	}

	b, err := os.ReadFile(*image)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	client := recognize.NewClient(recognize.ConfigFromEnv())
	results, err := client.ExtractKanji(ctx, strings.TrimSpace(string(b)))
	if err != nil {
		log.Fatalf("recognition failed: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("no kanji recognized")
		return
	}

	for _, result := range results {
		if !*save {
			printJSON(result)
			continue
		}
		card, err := store.Save(result.Flashcard())
		if err != nil {
			log.Fatalf("save failed: %v", err)
		}
		fmt.Printf("saved %s (%s) as %s\n", card.Kanji, card.Meaning, card.ID)
	}
}

func handleLookup(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	kanji := fs.String("kanji", "", "kanji character")
	mnemonicOnly := fs.Bool("mnemonic", false, "generate a mnemonic only")
	_ = fs.Parse(args)
	if *kanji == "" {
		log.Fatal("kanji is required")
	}

	client := recognize.NewClient(recognize.ConfigFromEnv())
	if *mnemonicOnly {
		mnemonic, err := client.GenerateMnemonic(ctx, *kanji)
		if err != nil {
			log.Fatalf("mnemonic failed: %v", err)
		}
		fmt.Println(mnemonic)
		return
	}

	details, err := client.KanjiDetails(ctx, *kanji)
	if err != nil {
		log.Fatalf("lookup failed: %v", err)
	}
	printJSON(details)
}

func handleSync(ctx context.Context, remote *syncclient.Client, baseURL, sub string, args []string) {
	switch sub {
	case "push", "":
		result, err := remote.Sync(ctx)
		if err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		fmt.Println(result.Message)
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP sync server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runSyncTCP(*addr, *pretty); err != nil {
				log.Printf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "watch":
		fs := flag.NewFlagSet("sync watch", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	default:
		log.Fatal("usage: kanjifinder sync <push|listen|watch>")
	}
}

func handleExport(store *localstore.Store, sub string, args []string) {
	cardsFor := func() []models.Flashcard {
		cards, err := store.List()
		if err != nil {
			log.Fatalf("export failed: %v", err)
		}
		return cards
	}

	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/flashcards.json", "output JSON path")
		_ = fs.Parse(args)

		cards := cardsFor()
		if err := writeJSON(*out, cards); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("exported %d cards to %s", len(cards), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/flashcards.csv", "output CSV path")
		_ = fs.Parse(args)

		cards := cardsFor()
		if err := writeCSV(*out, cards); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("exported %d cards to %s", len(cards), *out)
	default:
		log.Fatal("usage: kanjifinder export <json|csv>")
	}
}

func runSyncTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[sync] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	return u.String(), nil
}

func writeJSON(path string, cards []models.Flashcard) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, cards []models.Flashcard) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "kanji", "meaning", "on_yomi", "kun_yomi", "jlpt", "notes", "tags", "sync_status", "created_at",
	}); err != nil {
		return err
	}
	for _, card := range cards {
		if err := writer.Write([]string{
			card.ID,
			card.Kanji,
			card.Meaning,
			strings.Join(card.Readings.OnYomi, ","),
			strings.Join(card.Readings.KunYomi, ","),
			card.JLPT,
			card.Notes,
			strings.Join(card.Tags, ","),
			card.SyncStatus,
			card.CreatedAt,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printCards(cards []models.Flashcard) {
	if len(cards) == 0 {
		fmt.Println("no cards")
		return
	}
	for _, card := range cards {
		fmt.Printf("%s  %s  %-10s %-8s [%s]  %s\n",
			card.ID, card.Kanji, card.JLPT, card.SyncStatus,
			strings.Join(card.Tags, ","), card.Meaning)
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func apiBaseURL() string {
	if u := os.Getenv("KANJIFINDER_API_URL"); u != "" {
		return u
	}
	return defaultBaseURL
}

func printUsage() {
	fmt.Println(`kanjifinder - kanji flashcards from your terminal

usage: kanjifinder [-api URL] [-data DIR] <command>

commands:
  auth <login|register|logout>     backend session
  card <add|list|show|edit|delete> local flashcards
  scan -image FILE                 recognize kanji from a base64 image file
  lookup -kanji CHAR [-mnemonic]   look up one kanji
  sync [push]                      push unsynced cards to the backend
  sync <listen|watch>              follow the sync event feed (TCP/WebSocket)
  export <json|csv>                dump the local collection`)
}
