// Package main provides the animator control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/animbox/internal/api/connect"
)

var (
	app    = kingpin.New("animctl", "animbox animator control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// list command
	listCmd = app.Command("list", "List all animators").Alias("ls")

	// get command
	getCmd      = app.Command("get", "Show one animator")
	getAnimator = getCmd.Arg("animator", "Animator name or ID").Required().String()

	// pause command
	pauseCmd      = app.Command("pause", "Pause an animator")
	pauseAnimator = pauseCmd.Arg("animator", "Animator name or ID").Required().String()

	// play command
	playCmd      = app.Command("play", "Resume an animator")
	playAnimator = playCmd.Arg("animator", "Animator name or ID").Required().String()

	// toggle command
	toggleCmd      = app.Command("toggle", "Toggle pause of an animator")
	toggleAnimator = toggleCmd.Arg("animator", "Animator name or ID").Required().String()

	// seek command
	seekCmd      = app.Command("seek", "Move the playback cursor")
	seekAnimator = seekCmd.Arg("animator", "Animator name or ID").Required().String()
	seekTime     = seekCmd.Arg("time", "Playback time in seconds").Required().Float64()

	// speed command
	speedCmd      = app.Command("speed", "Set the playback speed (negative plays in reverse)")
	speedAnimator = speedCmd.Arg("animator", "Animator name or ID").Required().String()
	speedValue    = speedCmd.Arg("speed", "Speed multiplier").Required().Float64()

	// loop command
	loopCmd      = app.Command("loop", "Set the loop style")
	loopAnimator = loopCmd.Arg("animator", "Animator name or ID").Required().String()
	loopStyle    = loopCmd.Arg("style", "Loop style").Required().Enum("once", "loop", "pingpong")

	// sample command
	sampleCmd      = app.Command("sample", "Sample every track of an animator")
	sampleAnimator = sampleCmd.Arg("animator", "Animator name or ID").Required().String()
	sampleAt       = sampleCmd.Flag("at", "Sample time (default: current playback time)").IsSetByUser(&sampleAtSet).Float64()
	sampleAtSet    bool
	sampleClamp    = sampleCmd.Flag("clamp", "Hold end values outside each track's key range").Bool()

	// step command
	stepCmd   = app.Command("step", "Advance every animator once")
	stepDelta = stepCmd.Arg("delta", "Delta time in seconds").Required().Float64()

	// remove command
	removeCmd      = app.Command("remove", "Remove an animator").Alias("rm")
	removeAnimator = removeCmd.Arg("animator", "Animator name or ID").Required().String()

	// watch command
	watchCmd      = app.Command("watch", "Stream animator events")
	watchAnimator = watchCmd.Arg("animator", "Only watch this animator").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	switch command {
	case listCmd.FullCommand():
		list(ctx, client)
	case getCmd.FullCommand():
		show(client.Get(ctx, *getAnimator))
	case pauseCmd.FullCommand():
		requireToken()
		show(client.Pause(ctx, *pauseAnimator))
	case playCmd.FullCommand():
		requireToken()
		show(client.Play(ctx, *playAnimator))
	case toggleCmd.FullCommand():
		requireToken()
		show(client.TogglePause(ctx, *toggleAnimator))
	case seekCmd.FullCommand():
		requireToken()
		show(client.Seek(ctx, *seekAnimator, *seekTime))
	case speedCmd.FullCommand():
		requireToken()
		show(client.SetSpeed(ctx, *speedAnimator, *speedValue))
	case loopCmd.FullCommand():
		requireToken()
		show(client.SetLoopStyle(ctx, *loopAnimator, *loopStyle))
	case sampleCmd.FullCommand():
		sample(ctx, client)
	case stepCmd.FullCommand():
		requireToken()
		step(ctx, client)
	case removeCmd.FullCommand():
		requireToken()
		remove(ctx, client)
	case watchCmd.FullCommand():
		watch(client)
	}
}

func requireToken() {
	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func list(ctx context.Context, client *apiconnect.Client) {
	animators, err := client.List(ctx)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Animators (%d):\n", len(animators))
	for _, a := range animators {
		fmt.Printf("  %s: %s [%s] %s t=%.3f speed=%g%s\n",
			a.ID, a.Name, a.Kind, a.LoopStyle, a.Time, a.Speed, flags(a))
	}
}

func show(a apiconnect.AnimatorInfo, err error) {
	if err != nil {
		fail(err)
	}

	fmt.Printf("\n=== %s ===\n", a.Name)
	fmt.Printf("ID: %s\n", a.ID)
	fmt.Printf("Kind: %s (%d tracks)\n", a.Kind, a.TrackCount)
	fmt.Printf("Loop Style: %s\n", a.LoopStyle)
	fmt.Printf("Time: %.3f\n", a.Time)
	fmt.Printf("Speed: %g\n", a.Speed)
	fmt.Printf("Paused: %v\n", a.Paused)
	fmt.Printf("Pong: %v\n", a.Pong)
	if a.Empty {
		fmt.Println("Range: (empty)")
	} else if a.StartTime != nil && a.EndTime != nil && a.Duration != nil {
		fmt.Printf("Range: %.3f .. %.3f (%.3f s)\n", *a.StartTime, *a.EndTime, *a.Duration)
	}
	if a.Finished {
		fmt.Println("Finished")
	}
	fmt.Println()
}

func sample(ctx context.Context, client *apiconnect.Client) {
	var at *float64
	if sampleAtSet {
		at = sampleAt
	}
	res, err := client.Sample(ctx, *sampleAnimator, at, *sampleClamp)
	if err != nil {
		fail(err)
	}

	fmt.Printf("%s @ %.3f\n", res.Name, res.Time)
	for _, ts := range res.Tracks {
		if ts.OK {
			fmt.Printf("  %-12s %g\n", ts.Track, ts.Value)
		} else {
			fmt.Printf("  %-12s -\n", ts.Track)
		}
	}
}

func remove(ctx context.Context, client *apiconnect.Client) {
	a, err := client.Remove(ctx, *removeAnimator)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Animator removed: %s (%s)\n", a.Name, a.ID)
}

func step(ctx context.Context, client *apiconnect.Client) {
	animators, err := client.Step(ctx, *stepDelta)
	if err != nil {
		fail(err)
	}
	for _, a := range animators {
		fmt.Printf("  %s: t=%.3f%s\n", a.Name, a.Time, flags(a))
	}
}

func watch(client *apiconnect.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Watching events (Ctrl+C to stop)...")
	err := client.Watch(ctx, *watchAnimator, func(ev apiconnect.EventInfo) error {
		fmt.Printf("[%d] %-13s %s t=%.3f%s\n",
			ev.SequenceNo, ev.Type, ev.Animator.Name, ev.Animator.Time, flags(ev.Animator))
		return nil
	})
	if err != nil {
		fail(err)
	}
}

func flags(a apiconnect.AnimatorInfo) string {
	var s string
	if a.Paused {
		s += " paused"
	}
	if a.Pong {
		s += " pong"
	}
	if a.Finished {
		s += " finished"
	}
	return s
}
