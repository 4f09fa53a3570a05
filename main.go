// Command voicetrainer is a personal voice-training tool: it plays a
// reference recording, records the user's attempt at mimicking it, and
// renders side-by-side visual comparisons of the two.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"voicetrainer/audio"
	"voicetrainer/internal/config"
	"voicetrainer/internal/service"
	"voicetrainer/session"
	"voicetrainer/viz"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	reference := flag.String("reference", "", "Name of the reference recording to train against")
	listReferences := flag.Bool("list-references", false, "List available reference recordings and exit")
	inputName := flag.String("input", "", "Preferred input device (name substring)")
	outputName := flag.String("output", "", "Preferred output device (name substring)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))

	store := session.NewStore(cfg.Paths.ReferenceDir, cfg.Paths.RecordingsDir, cfg.Paths.TempDir, logger)
	if err := store.EnsureDirs(); err != nil {
		logger.Error("failed to prepare directories", "error", err)
		os.Exit(1)
	}

	if *listReferences {
		names, err := store.References()
		if err != nil {
			logger.Error("failed to list references", "error", err)
			os.Exit(1)
		}
		if len(names) == 0 {
			fmt.Println("No reference recordings found in", store.ReferenceDir)
			return
		}
		fmt.Println("Available reference recordings:")
		for _, name := range names {
			fmt.Println("-", name)
		}
		return
	}

	if *reference == "" {
		fmt.Fprintln(os.Stderr, "Usage: voicetrainer --reference <name>")
		fmt.Fprintln(os.Stderr, "       voicetrainer --list-references")
		os.Exit(2)
	}

	engine, err := audio.NewEngine(logger)
	if err != nil {
		logger.Error("failed to initialize audio backend", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	devices, err := engine.Devices()
	if err != nil {
		logger.Error("failed to enumerate audio devices", "error", err)
		os.Exit(1)
	}
	input, err := audio.SelectInput(devices, *inputName)
	if err != nil {
		logger.Error("no usable input device", "error", err)
		os.Exit(1)
	}
	output, err := audio.SelectOutput(devices, *outputName)
	if err != nil {
		logger.Error("no usable output device", "error", err)
		os.Exit(1)
	}
	logger.Info("devices selected", "input", input.Name, "output", output.Name)

	recorder := audio.NewCapture(engine, cfg.Audio.SampleRate, cfg.Audio.ChunkSize, logger)
	player := audio.NewPlayer(engine, cfg.Audio.ChunkSize, logger)
	renderer := viz.NewRenderer(viz.PlotConfig(cfg.Plot), logger)

	trainer := service.NewTrainer(cfg, store, recorder, player, renderer, logger)
	trainer.SetDevices(input, output)
	defer trainer.Close()

	if err := trainer.SetReference(*reference); err != nil {
		logger.Error("reference not found", "name", *reference, "error", err)
		os.Exit(1)
	}

	runSession(trainer, devices)
	fmt.Println("\nTraining session completed!")
}

func runSession(trainer *service.Trainer, devices []audio.Device) {
	stdin := bufio.NewScanner(os.Stdin)
	for {
		printMenu()
		fmt.Print("\nEnter command: ")
		if !stdin.Scan() {
			return
		}
		switch cmd := stdin.Text(); cmd {
		case "listen":
			fmt.Println("\nPlaying reference recording...")
			if err := trainer.Listen(); err != nil {
				fmt.Println("Error:", err)
			}

		case "record":
			recordAttempt(trainer, stdin)

		case "playback":
			fmt.Println("\nPlaying your attempt...")
			if err := trainer.PlayAttempt(); err != nil {
				fmt.Println("Error:", err)
			}

		case "visualize":
			fmt.Println("\nGenerating visualization...")
			path, err := trainer.Visualize()
			if err != nil {
				fmt.Println("Error:", err)
				break
			}
			fmt.Println("Comparison saved to:", path)

		case "export":
			path, err := trainer.ExportAttempt()
			if err != nil {
				fmt.Println("Error:", err)
				break
			}
			fmt.Println("Attempt exported to:", path)

		case "devices":
			for _, d := range devices {
				fmt.Printf("- %s (%s)\n", d.Name, deviceRole(d))
			}

		case "quit":
			return

		case "":
			// Ignore stray blank lines.

		default:
			fmt.Printf("Invalid command %q. Please try again.\n", cmd)
		}
	}
}

func recordAttempt(trainer *service.Trainer, stdin *bufio.Scanner) {
	fmt.Println("\nGet ready! Recording will start in:")
	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	if err := trainer.StartRecording(); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Recording... (press Enter to stop)")
	stdin.Scan()

	path, warn, err := trainer.StopRecording()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if warn != nil {
		fmt.Println("Warning:", warn.Reason)
	}
	if path == "" {
		fmt.Println("Nothing was recorded.")
		return
	}
	fmt.Println("Recording saved to:", path)
}

func printMenu() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  listen    - Play the reference recording")
	fmt.Println("  record    - Start recording your attempt")
	fmt.Println("  playback  - Play your last recording")
	fmt.Println("  visualize - Render the waveform comparison")
	fmt.Println("  export    - Export your last recording as MP3")
	fmt.Println("  devices   - List audio devices")
	fmt.Println("  quit      - Exit the program")
}

func deviceRole(d audio.Device) string {
	switch {
	case d.IsInput && d.IsOutput:
		return "input/output"
	case d.IsInput:
		return "input"
	default:
		return "output"
	}
}
