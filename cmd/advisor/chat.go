package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

var chatCmd = &cobra.Command{
	Use:   "chat <query>",
	Short: "Ask a farming question",
	Long: `Ask the farming assistant a question. The answer is localized for the
configured locale (currency, units, formatting).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, _ := cmd.Flags().GetBool("stream")
		language, _ := cmd.Flags().GetString("language")
		location, _ := cmd.Flags().GetString("location")
		locale, _ := cmd.Flags().GetString("locale")

		req := advisory.ChatRequest{
			Query:    strings.Join(args, " "),
			Language: language,
			Location: location,
			Locale:   locale,
		}
		w := cmd.OutOrStdout()

		if !stream {
			text, err := advisor.Chat(cmd.Context(), req, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, text)
			return nil
		}

		_, err := advisor.Chat(cmd.Context(), req, func(fragment string) {
			fmt.Fprint(w, fragment)
		})
		fmt.Fprintln(w)
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("stream", false, "print the answer as it is generated")
	chatCmd.Flags().String("language", "", "answer language, e.g. Hindi")
	chatCmd.Flags().String("location", "", "farmer location, e.g. Nashik, Maharashtra")
	chatCmd.Flags().String("locale", "", "locale for currency and units (default from DEFAULT_LOCALE)")
}
