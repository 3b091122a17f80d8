package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kris790/Kaleidoscope/internal/bootstrap"
	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
	"github.com/kris790/Kaleidoscope/internal/studio"
	"github.com/kris790/Kaleidoscope/internal/timeline"
)

func main() {
	var (
		promptFlag    string
		negativeFlag  string
		styleFlag     string
		cameraFlag    string
		narrateFlag   string
		voiceFlag     string
		outFlag       string
		groundingFlag bool
		extensions    []string
	)
	flag.StringVar(&promptFlag, "prompt", "", "scene to generate (required)")
	flag.StringVar(&negativeFlag, "negative", "", "things to keep out of the clip")
	flag.StringVar(&styleFlag, "style", domain.DefaultStyle, "style preset id")
	flag.StringVar(&cameraFlag, "camera", "", "camera movement id")
	flag.StringVar(&narrateFlag, "narrate", "", "narration script; empty skips narration")
	flag.StringVar(&voiceFlag, "voice", "", "narration voice")
	flag.StringVar(&outFlag, "out", "", "write the project zip to this path")
	flag.BoolVar(&groundingFlag, "grounding", false, "rewrite the prompt with search grounding")
	flag.Func("extend", "continuation prompt; repeat for several extensions", func(v string) error {
		extensions = append(extensions, v)
		return nil
	})
	flag.Parse()

	if strings.TrimSpace(promptFlag) == "" {
		exitWithError(errors.New("-prompt is required"))
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "kaleido").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		exitWithError(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = rt.Close(closeCtx)
	}()

	svc := rt.Studio
	draft := timeline.Draft{
		Prompt:         promptFlag,
		NegativePrompt: negativeFlag,
		AudioPrompt:    narrateFlag,
		Style:          styleFlag,
		CameraMovement: cameraFlag,
	}
	if voiceFlag != "" {
		draft.Voice = domain.VoiceConfig{Voice: voiceFlag}
	}
	p, err := svc.CreateProject(ctx, draft)
	if err != nil {
		exitWithError(err)
	}
	fmt.Printf("project %s (%s, balance %d)\n", p.ID, rt.Ledger.Tier(), rt.Ledger.Balance())

	if p, err = svc.Generate(ctx, p.ID, studio.GenerateOptions{Grounding: groundingFlag}); err != nil {
		exitWithError(fmt.Errorf("generate: %w", err))
	}
	printClip(p)
	for _, ext := range extensions {
		if p, err = svc.Extend(ctx, p.ID, studio.ExtendOptions{Prompt: ext}); err != nil {
			exitWithError(fmt.Errorf("extend: %w", err))
		}
		printClip(p)
	}
	if strings.TrimSpace(narrateFlag) != "" {
		if p, err = svc.Narrate(ctx, p.ID, studio.NarrateOptions{}); err != nil {
			exitWithError(fmt.Errorf("narrate: %w", err))
		}
		fmt.Printf("narration %s\n", p.AudioTrack.MediaURI)
	}

	if outFlag != "" {
		f, err := os.Create(outFlag)
		if err != nil {
			exitWithError(err)
		}
		if err := svc.Export(ctx, p.ID, f); err != nil {
			_ = f.Close()
			exitWithError(fmt.Errorf("export: %w", err))
		}
		if err := f.Close(); err != nil {
			exitWithError(err)
		}
		fmt.Printf("exported %s\n", outFlag)
	}
	fmt.Printf("done: %d clips, %ds, balance %d\n", len(p.Clips), p.TotalDuration(), rt.Ledger.Balance())
}

func printClip(p domain.Project) {
	c, ok := p.LastClip()
	if !ok {
		return
	}
	fmt.Printf("clip %d %s (%ds)\n", len(p.Clips), c.MediaURI, c.DurationSeconds)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
