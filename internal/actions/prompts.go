package actions

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"

	"gitgr.dev/gitgr/internal/graph"
)

// NoInteractiveEnv disables prompts when set
const NoInteractiveEnv = "GIT_GR_NO_INTERACTIVE"

// ErrInteractiveDisabled is returned instead of prompting when prompts are disabled
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are disabled (%s is set)", NoInteractiveEnv)

// Chooser picks one of several changes
type Chooser func(message string, options []graph.ChangeNumber, g *graph.DependencyGraph) (graph.ChangeNumber, error)

// PromptChange asks the user to pick a change with survey
func PromptChange(message string, options []graph.ChangeNumber, g *graph.DependencyGraph) (graph.ChangeNumber, error) {
	if os.Getenv(NoInteractiveEnv) != "" {
		return 0, ErrInteractiveDisabled
	}

	labels := make([]string, 0, len(options))
	byLabel := make(map[string]graph.ChangeNumber, len(options))
	for _, option := range options {
		label := option.String()
		if subject := g.Metadata[option].Subject; subject != "" {
			label += " " + subject
		}
		labels = append(labels, label)
		byLabel[label] = option
	}

	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: labels,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return 0, errors.New("canceled")
	}
	return byLabel[selected], nil
}
