package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nainya/promptvault/internal/server"
	"github.com/nainya/promptvault/pkg/template"
)

var (
	renderValues       []string
	rewritePlaceholder []string
)

var placeholdersCmd = &cobra.Command{
	Use:   "placeholders FILE",
	Short: "List the placeholders of a template",
	Long: `List the placeholders of a template file in first-appearance order.
Use - to read the template from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		descriptors := template.ExtractDescriptors(text)
		placeholders := make([]server.Placeholder, len(descriptors))
		for i, d := range descriptors {
			placeholders[i] = server.NewPlaceholder(d)
		}
		return output(cmd.OutOrStdout(), placeholders)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Render a template with values",
	Long: `Render a template file, substituting --set values. Placeholders without
a value stay in the output and are reported on stderr.

Examples:
  promptvault render greeting.txt --set name=Ada --set tone=formal
  echo "Hi {name}" | promptvault render - --set name=Ada`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		values, err := parseValues(renderValues)
		if err != nil {
			return err
		}

		result := template.Render(text, values)
		fmt.Fprint(cmd.OutOrStdout(), result.Rendered)
		if len(result.MissingKeys) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "missing values: %s\n", strings.Join(result.MissingKeys, ", "))
		}
		return nil
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite FILE",
	Short: "Rewrite placeholders in a template",
	Long: `Rewrite placeholders of a template file using --placeholder definitions.
Each definition uses placeholder syntax without braces: "key" for text,
"key:a|b" for an enumeration.

Example:
  promptvault rewrite prompt.txt --placeholder "tone:formal|casual"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		descriptors, err := parsePlaceholders(rewritePlaceholder)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), template.Rewrite(text, descriptors))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringArrayVar(&renderValues, "set", nil, "placeholder value as key=value (repeatable)")
	rewriteCmd.Flags().StringArrayVar(&rewritePlaceholder, "placeholder", nil, "placeholder definition as key or key:a|b (repeatable)")

	rootCmd.AddCommand(placeholdersCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(rewriteCmd)
}

func parseValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --set %q (want key=value)", pair)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}

// parsePlaceholders reads each definition with the template parser itself
func parsePlaceholders(defs []string) ([]template.Descriptor, error) {
	descriptors := make([]template.Descriptor, 0, len(defs))
	for _, def := range defs {
		found := template.ExtractDescriptors("{" + def + "}")
		if len(found) != 1 {
			return nil, fmt.Errorf("invalid --placeholder %q", def)
		}
		descriptors = append(descriptors, found[0])
	}
	return descriptors, nil
}
