package args

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markis/studio/internal/config"
)

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Prompts         []string
	Command         string
	Title           string
	Count           int
	ContextImageIDs []string
	UsePlainText    bool
	Debug           bool
}

// Prompt joins every collected prompt fragment into the text sent to the backend.
func (a Arguments) Prompt() string {
	return strings.TrimSpace(strings.Join(a.Prompts, "\n\n"))
}

// Input carries the process inputs ParseArgs reads from.
type Input struct {
	Args  []string
	Stdin *os.File
	Out   io.Writer
}

// ParseArgs parses command-line arguments and stdin input, returning an Arguments struct.
// Every preset in the config becomes a subcommand that supplies its prompt,
// title and count; flags given on the command line take precedence.
func ParseArgs(cfg config.Config, in Input) (Arguments, error) {
	args := Arguments{}
	ran := false

	rootCmd := &cobra.Command{
		Use:   "studio [command] [flags] [prompt]",
		Short: "Draft image prompt variations with the studio backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ran = true
			if len(cmdArgs) > 0 {
				args.Prompts = append(args.Prompts, cmdArgs[0])
			}
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}
	// cobra falls back to os.Args when given nil.
	argv := in.Args
	if argv == nil {
		argv = []string{}
	}
	rootCmd.SetArgs(argv)
	out := in.Out
	if out == nil {
		out = os.Stdout
	}
	rootCmd.SetOut(out)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.IntVarP(&args.Count, "count", "n", cfg.Count, "Number of variations to generate")
	flags.StringVarP(&args.Title, "title", "t", "", "Title for the generated collection")
	flags.StringSliceVarP(&args.ContextImageIDs, "context-image", "i", nil, "ID of an image to use as context (repeatable)")
	flags.BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg, out), "Disable markdown rendering")
	flags.BoolVar(&args.Debug, "debug", false, "Enable debug logging")

	// Add predefined commands in a stable order
	names := make([]string, 0, len(cfg.Prompts))
	for name := range cfg.Prompts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		preset := cfg.Prompts[name]
		cmd := &cobra.Command{
			Use:   name + " [input]",
			Short: summarizePrompt(preset.Prompt),
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				ran = true
				args.Command = name
				args.Prompts = append(args.Prompts, preset.Prompt)
				if len(cmdArgs) > 0 {
					args.Prompts = append(args.Prompts, cmdArgs[0])
				}
				if preset.Title != "" && !cmd.Flags().Changed("title") {
					args.Title = preset.Title
				}
				if preset.Count > 0 && !cmd.Flags().Changed("count") {
					args.Count = preset.Count
				}
				return nil
			},
		}
		rootCmd.AddCommand(cmd)
	}

	// Execute the command
	if err := rootCmd.Execute(); err != nil {
		return Arguments{}, err
	}
	// --help and similar exit without running a command.
	if !ran {
		return Arguments{}, ErrHelp
	}

	// Read from stdin if available
	if in.Stdin != nil {
		prompt, err := readPipedInput(in.Stdin)
		if err != nil {
			return Arguments{}, err
		}
		if prompt != "" {
			args.Prompts = append(args.Prompts, prompt)
		}
	}

	// Check if we have any prompts
	if args.Prompt() == "" {
		return Arguments{}, errors.New("no prompt provided")
	}

	return args, nil
}

// ErrHelp is returned when the command line only asked for usage output.
var ErrHelp = errors.New("help requested")

func readPipedInput(f *os.File) (string, error) {
	stat, err := f.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", nil
	}

	data, err := io.ReadAll(io.LimitReader(f, 1024*1024)) // 1MB max
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// shouldUsePlainText reports whether markdown styling should be skipped: the
// config asks for it, out is not a terminal, NO_COLOR is set or TERM is dumb.
func shouldUsePlainText(cfg config.Config, out io.Writer) bool {
	if cfg.Render.Format == "plain" {
		return true
	}

	f, ok := out.(*os.File)
	if !ok {
		return true
	}
	if info, err := f.Stat(); err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return true
	}

	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}

// summarizePrompt shortens a preset prompt to one line of help text.
func summarizePrompt(prompt string) string {
	const maxRunes = 60

	summary, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	runes := []rune(strings.TrimSpace(summary))
	if len(runes) > maxRunes {
		return string(runes[:maxRunes-3]) + "..."
	}
	return string(runes)
}
