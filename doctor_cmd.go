package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CasualC-er/ebupTTS/internal/encode"
	"github.com/CasualC-er/ebupTTS/internal/synth"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check synthesis engines and audio encoders",
	Long: paragraph(fmt.Sprintf(
		"\nProbe the %s and %s this machine provides, with install hints for anything missing.",
		keyword("speech engines"), keyword("audio encoders"))),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDoctor(cmd)
	},
}

func runDoctor(cmd *cobra.Command) error {
	ctx := cmd.Context()

	fmt.Println()
	fmt.Println(keyword("Synthesis engines"))
	usable := 0
	for _, engine := range synth.DefaultEngines(synth.DefaultParams()) {
		result := engine.Validate(ctx)
		if result.Available {
			usable++
			fmt.Printf("  %s %-10s %s\n", okMark, result.Engine, subtle(result.Details["binary_path"]))
			continue
		}
		fmt.Printf("  %s %-10s\n", failMark, result.Engine)
		if result.Guidance != "" {
			fmt.Println(paragraph(subtle(result.Guidance)))
		}
	}

	fmt.Println()
	fmt.Println(keyword("Audio encoders"))
	for _, format := range encode.Formats() {
		encoder, err := encode.NewEncoder(format, 0.5)
		if err != nil {
			return err
		}
		if err := encoder.Validate(); err != nil {
			fmt.Printf("  %s %-10s\n", failMark, format)
			var unavailable *encode.UnavailableError
			if errors.As(err, &unavailable) && unavailable.Guidance != "" {
				fmt.Println(paragraph(subtle(unavailable.Guidance)))
			}
			continue
		}
		fmt.Printf("  %s %-10s\n", okMark, format)
	}
	fmt.Println()

	if usable == 0 {
		fmt.Println(paragraph("No usable synthesis engine was found. Install espeak-ng (preferred), espeak, or festival, then run doctor again."))
		return errors.New("no synthesis engine installed")
	}
	fmt.Println(paragraph(fmt.Sprintf("Ready to convert with %d synthesis engine(s).", usable)))
	return nil
}
