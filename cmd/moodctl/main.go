// Package main provides moodctl, a command line client for the moodtrace worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/affectlab/moodtrace/internal/config"
	"github.com/affectlab/moodtrace/pkg/client"
	"github.com/affectlab/moodtrace/pkg/models"
)

func usage() {
	fmt.Fprintf(os.Stderr, `moodctl - moodtrace worker client

Usage:
  moodctl [-server URL] <command> [arguments]

Commands:
  start                       start a new session and print its id
  sessions                    list all sessions
  record <session-id>         record one frame (-question, -emotion, -confidence or -image)
  seed <session-id>           record many frames concurrently (-frames, -workers, -questions)
  end <session-id>            end a session and print its results
  results <session-id>        print session results (-question for one question)
  questions <session-id>      list per-question summaries
  clear <session-id>          remove a session
  archive                     list recently archived sessions (-limit)
  watch                       tail the live event stream
  health                      print worker health

Flags:
`)
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "moodctl:", err)
	os.Exit(1)
}

func newClient(server string) *client.Client {
	if server == "" {
		return client.NewLocal(config.GetWorkerPort())
	}
	return client.New(server, client.DefaultTimeout)
}

func main() {
	flag.Usage = usage
	server := flag.String("server", "", "Worker base URL (default: local worker)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(*server)

	switch args[0] {
	case "start":
		cmdStart(ctx, c)
	case "sessions":
		cmdSessions(ctx, c)
	case "record":
		cmdRecord(ctx, c, args[1:])
	case "seed":
		cmdSeed(ctx, c, args[1:])
	case "end":
		cmdEnd(ctx, c, args[1:])
	case "results":
		cmdResults(ctx, c, args[1:])
	case "questions":
		cmdQuestions(ctx, c, args[1:])
	case "clear":
		cmdClear(ctx, c, args[1:])
	case "archive":
		cmdArchive(ctx, c, args[1:])
	case "watch":
		cmdWatch(ctx, c)
	case "health":
		cmdHealth(ctx, c)
	default:
		fmt.Fprintf(os.Stderr, "moodctl: unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}
}

// sessionArg extracts the positional session id after subcommand flags.
func sessionArg(fs *flag.FlagSet) string {
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "moodctl %s: exactly one session id required\n", fs.Name())
		os.Exit(2)
	}
	return fs.Arg(0)
}

func cmdStart(ctx context.Context, c *client.Client) {
	info, err := c.StartSession(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Println(info.SessionID)
}

func cmdSessions(ctx context.Context, c *client.Client) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		fail(err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return
	}
	for _, s := range sessions {
		end := "-"
		if s.EndTime != nil {
			end = s.EndTime.Local().Format(time.TimeOnly)
		}
		fmt.Printf("%s  %-9s  started %s  ended %s  %d frames\n",
			s.SessionID, s.Status, s.StartTime.Local().Format(time.TimeOnly), end, s.TotalFrames)
	}
}

func cmdRecord(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	question := fs.String("question", "q1", "Question id")
	emotion := fs.String("emotion", "", "Emotion label (pre-classified frame)")
	confidence := fs.Float64("confidence", 0.8, "Confidence for -emotion")
	image := fs.String("image", "", "Image file to classify instead of -emotion")
	fs.Parse(args)
	sessionID := sessionArg(fs)

	var frame models.Frame
	var err error
	switch {
	case *image != "":
		f, openErr := os.Open(*image)
		if openErr != nil {
			fail(openErr)
		}
		defer f.Close()
		frame, err = c.RecordImage(ctx, sessionID, *question, filepath.Base(*image), f)
	case *emotion != "":
		label, parseErr := models.ParseEmotion(*emotion)
		if parseErr != nil {
			fail(parseErr)
		}
		frame, err = c.RecordFrame(ctx, sessionID, *question, label, *confidence)
	default:
		fail(fmt.Errorf("one of -emotion or -image is required"))
	}
	if err != nil {
		fail(err)
	}
	fmt.Printf("%s  %s %.2f\n", frame.FrameID, frame.Emotion, frame.Confidence)
}

// cmdSeed floods a session with frames from concurrent workers. Useful for
// exercising aggregation under parallel recording.
func cmdSeed(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	frames := fs.Int("frames", 50, "Frames to record")
	workers := fs.Int("workers", 8, "Concurrent workers")
	questions := fs.Int("questions", 3, "Questions to spread frames across")
	fs.Parse(args)
	sessionID := sessionArg(fs)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i := 0; i < *frames; i++ {
		i := i
		g.Go(func() error {
			label := models.AllEmotions[i%len(models.AllEmotions)]
			conf := 0.5 + float64(i%5)*0.1
			q := fmt.Sprintf("q%d", i%*questions+1)
			_, err := c.RecordFrame(gctx, sessionID, q, label, conf)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		fail(err)
	}
	fmt.Printf("recorded %d frames in %s\n", *frames, time.Since(start).Round(time.Millisecond))
}

func cmdEnd(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("end", flag.ExitOnError)
	fs.Parse(args)
	results, err := c.EndSession(ctx, sessionArg(fs))
	if err != nil {
		fail(err)
	}
	printSessionResults(results)
}

func cmdResults(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	question := fs.String("question", "", "Question id (default: whole session)")
	fs.Parse(args)
	sessionID := sessionArg(fs)

	if *question != "" {
		qr, err := c.QuestionResults(ctx, sessionID, *question)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Question %s (first frame %s)\n", qr.QuestionID, qr.Timestamp.Local().Format(time.TimeOnly))
		printResults(qr.Results)
		return
	}

	results, err := c.SessionResults(ctx, sessionID)
	if err != nil {
		fail(err)
	}
	printSessionResults(results)
}

func cmdQuestions(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("questions", flag.ExitOnError)
	fs.Parse(args)
	questions, err := c.ListQuestions(ctx, sessionArg(fs))
	if err != nil {
		fail(err)
	}
	if len(questions) == 0 {
		fmt.Println("no questions")
		return
	}
	for _, q := range questions {
		fmt.Printf("%-12s  %3d frames  dominant %-9s  %s\n",
			q.QuestionID, q.TotalFrames, orDash(string(q.DominantEmotion)), q.Variability)
	}
}

func cmdClear(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	fs.Parse(args)
	sessionID := sessionArg(fs)
	if err := c.ClearSession(ctx, sessionID); err != nil {
		fail(err)
	}
	fmt.Printf("cleared %s\n", sessionID)
}

func cmdArchive(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum sessions to list")
	fs.Parse(args)

	sessions, err := c.ArchivedSessions(ctx, *limit)
	if err != nil {
		fail(err)
	}
	if len(sessions) == 0 {
		fmt.Println("no archived sessions")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  ended %s  %3d frames  dominant %s\n",
			s.SessionID, s.EndTime.Local().Format(time.DateTime), s.TotalFrames,
			orDash(string(s.Results.DominantEmotion)))
	}
}

func cmdWatch(ctx context.Context, c *client.Client) {
	fmt.Fprintln(os.Stderr, "watching events (ctrl-c to stop)")
	err := c.Watch(ctx, func(ev client.Event) {
		line := fmt.Sprintf("%s  %-16s %s", ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, ev.SessionID)
		if ev.Frame != nil {
			line += fmt.Sprintf("  %s/%s %.2f", ev.QuestionID, ev.Frame.Emotion, ev.Frame.Confidence)
		}
		if ev.Results != nil {
			line += fmt.Sprintf("  %d frames, dominant %s", ev.Results.TotalFrames, orDash(string(ev.Results.DominantEmotion)))
		}
		fmt.Println(line)
	})
	if err != nil && ctx.Err() == nil {
		fail(err)
	}
}

func cmdHealth(ctx context.Context, c *client.Client) {
	health, err := c.Health(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("status:     %s (v%s, up %ds)\n", health.Status, health.Version, health.UptimeSeconds)
	fmt.Printf("sessions:   %d held, %d stream clients\n", health.Sessions, health.SSEClients)
	fmt.Printf("archive:    %s\n", readiness(health.ArchiveHealthy))
	fmt.Printf("classifier: %s\n", readiness(health.ClassifierReady))
}

func printSessionResults(r models.SessionResults) {
	fmt.Printf("Session %s (%s)\n", r.SessionID, r.Status)
	fmt.Printf("  %d frames across %d questions\n", r.TotalFrames, r.TotalQuestions)
	printResults(r.Results)
	for _, q := range r.Questions {
		fmt.Printf("  %-12s  %3d frames  dominant %s\n",
			q.QuestionID, q.TotalFrames, orDash(string(q.DominantEmotion)))
	}
}

func printResults(r models.Results) {
	for _, label := range models.AllEmotions {
		if n := r.Distribution[label]; n > 0 {
			fmt.Printf("  %-10s %d\n", label, n)
		}
	}
	fmt.Printf("  variability %s, trend %q\n", r.Variability, r.Trend)
	for _, obs := range r.Observations {
		fmt.Printf("  - %s\n", obs)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func readiness(ok bool) string {
	if ok {
		return "ready"
	}
	return "unavailable"
}
