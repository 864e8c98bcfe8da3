// Package wizards holds the interactive setup flows built on bubbletea.
package wizards

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prismtools/prism/internal/config"
	"github.com/prismtools/prism/pkg/prism"
)

// InitResult holds the result of the init wizard.
type InitResult struct {
	Cancelled bool
	Config    config.TenantConfig
}

// InitWizard guides users through tenant configuration: base URL, tenant
// name and the credentials of the registered API client.
type InitWizard struct {
	step initStep

	inputs        []textinput.Model
	focusIndex    int
	validationErr string

	// Result
	result InitResult

	// Dimensions
	width  int
	height int

	// Styles and keys
	styles wizardStyles
	keys   wizardKeys
}

type initStep int

const (
	initStepInputs initStep = iota
	initStepComplete
)

// Input field positions.
const (
	fieldBaseURL = iota
	fieldTenant
	fieldClientID
	fieldClientSecret
	fieldRefreshToken
	fieldVersion
)

type wizardStyles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Label       lipgloss.Style
	Description lipgloss.Style
	Help        lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
}

type wizardKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
	Tab    key.Binding
}

func defaultWizardStyles() wizardStyles {
	return wizardStyles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1),
		Subtitle:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginBottom(1),
		Label:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginLeft(4),
		Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1),
		Success:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func defaultWizardKeys() wizardKeys {
	return wizardKeys{
		Up:     key.NewBinding(key.WithKeys("up")),
		Down:   key.NewBinding(key.WithKeys("down")),
		Select: key.NewBinding(key.WithKeys("enter")),
		Back:   key.NewBinding(key.WithKeys("esc")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c")),
		Tab:    key.NewBinding(key.WithKeys("tab")),
	}
}

// NewInitWizard creates a new init wizard, optionally pre-filled from an
// existing configuration.
func NewInitWizard(existing *config.TenantConfig) InitWizard {
	w := InitWizard{
		step:   initStepInputs,
		width:  80,
		height: 24,
		styles: defaultWizardStyles(),
		keys:   defaultWizardKeys(),
	}
	w.inputs = createInputs(existing)
	return w
}

func createInputs(existing *config.TenantConfig) []textinput.Model {
	baseURL := textinput.New()
	baseURL.Placeholder = "https://wd2-impl-services1.workday.com"
	baseURL.CharLimit = 256
	baseURL.Width = 50

	tenant := textinput.New()
	tenant.Placeholder = "mytenant"
	tenant.CharLimit = 64
	tenant.Width = 40

	clientID := textinput.New()
	clientID.Placeholder = "client id"
	clientID.CharLimit = 128
	clientID.Width = 50

	clientSecret := textinput.New()
	clientSecret.Placeholder = "client secret"
	clientSecret.EchoMode = textinput.EchoPassword
	clientSecret.EchoCharacter = '•'
	clientSecret.CharLimit = 256
	clientSecret.Width = 50

	refreshToken := textinput.New()
	refreshToken.Placeholder = "refresh token"
	refreshToken.EchoMode = textinput.EchoPassword
	refreshToken.EchoCharacter = '•'
	refreshToken.CharLimit = 512
	refreshToken.Width = 50

	version := textinput.New()
	version.SetValue(prism.DefaultAPIVersion)
	version.CharLimit = 8
	version.Width = 10

	inputs := []textinput.Model{baseURL, tenant, clientID, clientSecret, refreshToken, version}

	if existing != nil {
		inputs[fieldBaseURL].SetValue(existing.BaseURL)
		inputs[fieldTenant].SetValue(existing.Tenant)
		inputs[fieldClientID].SetValue(existing.ClientID)
		inputs[fieldClientSecret].SetValue(existing.ClientSecret)
		inputs[fieldRefreshToken].SetValue(existing.RefreshToken)
		if existing.Version != "" {
			inputs[fieldVersion].SetValue(existing.Version)
		}
	}

	return inputs
}

// Init implements tea.Model.
func (w InitWizard) Init() tea.Cmd {
	return w.inputs[0].Focus()
}

// Update implements tea.Model.
func (w InitWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case tea.KeyMsg:
		if key.Matches(msg, w.keys.Quit) {
			w.result.Cancelled = true
			return w, tea.Quit
		}

		switch w.step {
		case initStepInputs:
			return w.updateInputs(msg)
		case initStepComplete:
			if key.Matches(msg, w.keys.Select) {
				return w, tea.Quit
			}
		}

	default:
		// Forward non-key messages (focus, blink cursor) to active text input
		if w.step == initStepInputs && w.focusIndex >= 0 && w.focusIndex < len(w.inputs) {
			var cmd tea.Cmd
			w.inputs[w.focusIndex], cmd = w.inputs[w.focusIndex].Update(msg)
			return w, cmd
		}
	}

	return w, nil
}

func (w InitWizard) updateInputs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Tab), key.Matches(msg, w.keys.Down):
		if w.focusIndex < len(w.inputs)-1 {
			w.inputs[w.focusIndex].Blur()
			w.focusIndex++
			return w, w.inputs[w.focusIndex].Focus()
		}
	case msg.String() == "shift+tab", key.Matches(msg, w.keys.Up):
		if w.focusIndex > 0 {
			w.inputs[w.focusIndex].Blur()
			w.focusIndex--
			return w, w.inputs[w.focusIndex].Focus()
		}
	case key.Matches(msg, w.keys.Select):
		// Enter on non-last field advances to next field
		if w.focusIndex < len(w.inputs)-1 {
			w.inputs[w.focusIndex].Blur()
			w.focusIndex++
			return w, w.inputs[w.focusIndex].Focus()
		}
		// Enter on last field submits the form
		if err := w.validateInputs(); err != nil {
			w.validationErr = err.Error()
			return w, nil
		}
		w.validationErr = ""
		w.buildConfig()
		w.step = initStepComplete
		return w, tea.Quit
	case key.Matches(msg, w.keys.Back):
		w.result.Cancelled = true
		return w, tea.Quit
	default:
		w.validationErr = ""
		var cmd tea.Cmd
		w.inputs[w.focusIndex], cmd = w.inputs[w.focusIndex].Update(msg)
		return w, cmd
	}
	return w, nil
}

func (w *InitWizard) validateInputs() error {
	base := strings.TrimSpace(w.inputs[fieldBaseURL].Value())
	if base == "" {
		return fmt.Errorf("base URL is required")
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL must be a full URL, e.g. https://host.example.com")
	}
	if strings.TrimSpace(w.inputs[fieldTenant].Value()) == "" {
		return fmt.Errorf("tenant name is required")
	}
	if strings.TrimSpace(w.inputs[fieldClientID].Value()) == "" {
		return fmt.Errorf("client id is required")
	}
	return nil
}

func (w *InitWizard) buildConfig() {
	w.result.Config = config.TenantConfig{
		BaseURL:      strings.TrimSpace(w.inputs[fieldBaseURL].Value()),
		Tenant:       strings.TrimSpace(w.inputs[fieldTenant].Value()),
		ClientID:     strings.TrimSpace(w.inputs[fieldClientID].Value()),
		ClientSecret: w.inputs[fieldClientSecret].Value(),
		RefreshToken: w.inputs[fieldRefreshToken].Value(),
		Version:      strings.TrimSpace(w.inputs[fieldVersion].Value()),
	}
}

// View implements tea.Model.
func (w InitWizard) View() string {
	var b strings.Builder

	b.WriteString(w.styles.Title.Render("prism init - Tenant Setup"))
	b.WriteString("\n")

	switch w.step {
	case initStepInputs:
		b.WriteString(w.viewInputs())
	case initStepComplete:
		b.WriteString(w.viewComplete())
	}

	return b.String()
}

func (w InitWizard) viewInputs() string {
	var b strings.Builder

	b.WriteString(w.styles.Subtitle.Render("Enter tenant and API client details"))
	b.WriteString("\n\n")

	labels := []string{
		"Base URL",
		"Tenant",
		"Client ID",
		"Client secret",
		"Refresh token",
		"API version",
	}

	for i, input := range w.inputs {
		b.WriteString(w.styles.Label.Render(fmt.Sprintf("%-14s", labels[i])))
		b.WriteString(input.View())
		b.WriteString("\n")
	}

	if w.validationErr != "" {
		b.WriteString("\n")
		b.WriteString(w.styles.Error.Render("✗ " + w.validationErr))
		b.WriteString("\n")
	}

	b.WriteString(w.styles.Help.Render("\ntab/↑/↓ move • enter next/submit • esc cancel"))

	return b.String()
}

func (w InitWizard) viewComplete() string {
	var b strings.Builder

	b.WriteString(w.styles.Success.Render("✓ Configuration ready"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Base URL: %s\n", w.result.Config.BaseURL))
	b.WriteString(fmt.Sprintf("Tenant:   %s\n", w.result.Config.Tenant))

	return b.String()
}

// Result returns the wizard result.
func (w InitWizard) Result() InitResult {
	return w.result
}

// RunInitWizard executes the init wizard and returns the collected
// tenant configuration.
func RunInitWizard(existing *config.TenantConfig) (InitResult, error) {
	wizard := NewInitWizard(existing)
	p := tea.NewProgram(wizard, tea.WithAltScreen())

	model, err := p.Run()
	if err != nil {
		return InitResult{Cancelled: true}, err
	}

	return model.(InitWizard).Result(), nil
}

// ShowInitComplete displays the completion message after the config file
// is written.
func ShowInitComplete(path string) {
	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Printf("  %s\n", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run: prism tables get")
	fmt.Println("  2. Load data: prism tables upload -n MyTable file.csv")
	fmt.Println()
}
