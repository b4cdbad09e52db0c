// Command scanner checks guests in from the terminal.
//
// With -image it decodes QR codes from image files the way the page decodes
// camera frames; otherwise it reads pasted ticket links from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lumacheckin/internal/scanner"
	"lumacheckin/pkg/logger"

	"github.com/joho/godotenv"
)

// Default server base URL; can override with CHECKIN_SERVER env var or -server flag.
var serverBaseURL = "http://localhost:8080"

type imageList []string

func (l *imageList) String() string     { return strings.Join(*l, ",") }
func (l *imageList) Set(v string) error { *l = append(*l, v); return nil }

func main() {
	var images imageList
	serverFlag := flag.String("server", "", "Check-in server base URL (e.g. https://checkin.example.com)")
	flag.Var(&images, "image", "QR image to scan; repeat for several")
	flag.Parse()

	_ = godotenv.Load()
	if env := os.Getenv("CHECKIN_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	camera := scanner.NewImageCamera(images)
	session := scanner.NewSession(
		camera,
		scanner.NewTerminalViewport(os.Stderr),
		camera,
		scanner.NewHTTPSubmitter(serverBaseURL, nil),
		logger.NewWithWriter(os.Stderr, os.Getenv("LOG_LEVEL")),
	)
	session.Prewarm(ctx)

	var err error
	if len(images) > 0 {
		err = scanImages(ctx, session, camera)
	} else {
		err = readLinks(ctx, session, os.Stdin)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// scanImages runs attempts until every image has been read
func scanImages(ctx context.Context, session *scanner.Session, camera *scanner.ImageCamera) error {
	for camera.Remaining() > 0 && ctx.Err() == nil {
		out, err := session.Scan(ctx)
		if err != nil {
			return err
		}
		printOutcome(out)
	}
	return nil
}

// readLinks submits each non-empty stdin line as a manual entry
func readLinks(ctx context.Context, session *scanner.Session, in io.Reader) error {
	fmt.Fprintln(os.Stderr, "Paste ticket links, one per line (Ctrl-D to finish):")
	lines := bufio.NewScanner(in)
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		out, err := session.SubmitManual(ctx, text)
		if err != nil {
			return err
		}
		printOutcome(out)
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
	}
	return lines.Err()
}

func printOutcome(out scanner.Outcome) {
	mark := "x"
	if out.State == scanner.StateSuccess {
		mark = "ok"
	}
	if out.Reference.EventID != "" {
		fmt.Printf("[%s] %s (event %s)\n", mark, out.Message, out.Reference.EventID)
		return
	}
	fmt.Printf("[%s] %s\n", mark, out.Message)
}
