package tui

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/logger"
	"github.com/sadopc/habitr/internal/store"
)

type profileForm int

const (
	formProfile profileForm = iota
	formPassword
	formBackground
	formPreferences
)

type profileModel struct {
	b      *backend
	width  int
	height int

	profile  *api.Profile
	settings []store.Setting

	formActive bool
	form       *huh.Form
	formType   profileForm

	// Form values as pointers (survive value copies)
	firstName *string
	lastName  *string
	email     *string
	current   *string
	newPass   *string
	confirm   *string
	imagePath *string
	weekStart *string
	chartMode *string
}

func newProfileModel(b *backend) profileModel {
	fn, ln, em := "", "", ""
	cur, np, cf := "", "", ""
	img, ws, cm := "", "", ""
	return profileModel{
		b:         b,
		firstName: &fn,
		lastName:  &ln,
		email:     &em,
		current:   &cur,
		newPass:   &np,
		confirm:   &cf,
		imagePath: &img,
		weekStart: &ws,
		chartMode: &cm,
	}
}

func (p *profileModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type profileDataMsg struct {
	profile *api.Profile
}

type settingsDataMsg struct {
	settings []store.Setting
}

type settingsChangedMsg struct{}

type logoutRequestMsg struct{}

func (p profileModel) refresh() tea.Cmd {
	b := p.b
	return tea.Batch(
		b.call(func(ctx context.Context) tea.Msg {
			prof, err := b.session.Profile(ctx)
			if err != nil {
				return errMsg{context: "load profile", err: err}
			}
			return profileDataMsg{profile: prof}
		}),
		p.loadSettings(),
	)
}

func (p profileModel) loadSettings() tea.Cmd {
	return func() tea.Msg {
		settings, err := p.b.store.GetAllSettings()
		if err != nil {
			return errMsg{context: "load settings", err: err}
		}
		return settingsDataMsg{settings: settings}
	}
}

func (p profileModel) update(msg tea.Msg) (profileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileDataMsg:
		p.profile = msg.profile
		return p, nil
	case settingsDataMsg:
		p.settings = msg.settings
		return p, nil
	}

	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Edit):
			return p.showProfileForm()
		case key.Matches(msg, keys.Password):
			return p.showPasswordForm()
		case key.Matches(msg, keys.Image):
			return p.showBackgroundForm()
		case key.Matches(msg, keys.Delete):
			if p.profile != nil && p.profile.BackgroundImageURL != "" {
				return p, p.deleteBackground()
			}
		case key.Matches(msg, keys.Enter):
			return p.showPreferencesForm()
		case key.Matches(msg, keys.Refresh):
			return p, p.refresh()
		case key.Matches(msg, keys.Logout):
			return p, func() tea.Msg { return logoutRequestMsg{} }
		}
	}
	return p, nil
}

func validEmail(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func (p profileModel) showProfileForm() (profileModel, tea.Cmd) {
	*p.firstName, *p.lastName, *p.email = "", "", ""
	if p.profile != nil {
		*p.firstName = p.profile.FirstName
		*p.lastName = p.profile.LastName
		*p.email = p.profile.Email
	}
	p.formType = formProfile
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(p.firstName),
			huh.NewInput().Title("Last name").Value(p.lastName),
			huh.NewInput().Title("Email").Value(p.email).Validate(validEmail),
		),
	).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p profileModel) showPasswordForm() (profileModel, tea.Cmd) {
	*p.current, *p.newPass, *p.confirm = "", "", ""
	p.formType = formPassword
	newPass := p.newPass
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Current password").EchoMode(huh.EchoModePassword).Value(p.current),
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(p.newPass).
				Validate(func(s string) error {
					if len(s) < 8 {
						return api.ErrPasswordTooShort
					}
					return nil
				}),
			huh.NewInput().Title("Confirm new password").EchoMode(huh.EchoModePassword).Value(p.confirm).
				Validate(func(s string) error {
					return api.PasswordChange{NewPassword: *newPass, ConfirmPassword: s}.Validate()
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p profileModel) showBackgroundForm() (profileModel, tea.Cmd) {
	*p.imagePath = ""
	p.formType = formBackground
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Background image path").Value(p.imagePath).
				Validate(func(s string) error {
					st, err := os.Stat(expandHome(s))
					if err != nil {
						return fmt.Errorf("file not found")
					}
					if st.IsDir() {
						return fmt.Errorf("path is a directory")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p profileModel) showPreferencesForm() (profileModel, tea.Cmd) {
	*p.weekStart = p.b.store.SettingOr("week_start", "monday")
	*p.chartMode = p.b.store.SettingOr("chart_mode", "stacked")
	p.formType = formPreferences
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(p.weekStart),
			huh.NewSelect[string]().Title("Statistics chart").
				Options(
					huh.NewOption("Stacked by status", "stacked"),
					huh.NewOption("Completed only", "completed"),
				).Value(p.chartMode),
		).Title("Preferences"),
	).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p profileModel) updateForm(msg tea.Msg) (profileModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		switch p.formType {
		case formProfile:
			return p, p.saveProfile(api.ProfileUpdate{
				FirstName: strings.TrimSpace(*p.firstName),
				LastName:  strings.TrimSpace(*p.lastName),
				Email:     strings.TrimSpace(*p.email),
			})
		case formPassword:
			in := api.PasswordChange{CurrentPassword: *p.current, NewPassword: *p.newPass, ConfirmPassword: *p.confirm}
			*p.current, *p.newPass, *p.confirm = "", "", ""
			return p, p.changePassword(in)
		case formBackground:
			return p, p.uploadBackground(expandHome(strings.TrimSpace(*p.imagePath)))
		case formPreferences:
			return p, p.savePreferences()
		}
	}
	return p, cmd
}

func (p profileModel) saveProfile(in api.ProfileUpdate) tea.Cmd {
	b := p.b
	return b.call(func(ctx context.Context) tea.Msg {
		prof, err := b.client.UpdateProfile(ctx, in)
		if err != nil {
			return errMsg{context: "update profile", err: err}
		}
		b.session.SetProfile(prof)
		return profileDataMsg{profile: prof}
	})
}

func (p profileModel) changePassword(in api.PasswordChange) tea.Cmd {
	b := p.b
	return b.call(func(ctx context.Context) tea.Msg {
		if err := b.client.ChangePassword(ctx, in); err != nil {
			return errMsg{context: "change password", err: err}
		}
		logger.Info("password changed", "username", b.session.Username())
		return statusMsg{text: "Password changed"}
	})
}

func (p profileModel) uploadBackground(path string) tea.Cmd {
	b := p.b
	return b.call(func(ctx context.Context) tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return errMsg{context: "open image", err: err}
		}
		defer f.Close()
		prof, err := b.client.UploadBackground(ctx, filepath.Base(path), f)
		if err != nil {
			return errMsg{context: "upload background", err: err}
		}
		b.session.SetProfile(prof)
		return profileDataMsg{profile: prof}
	})
}

func (p profileModel) deleteBackground() tea.Cmd {
	b := p.b
	return b.call(func(ctx context.Context) tea.Msg {
		if err := b.client.DeleteBackground(ctx); err != nil {
			return errMsg{context: "delete background", err: err}
		}
		b.session.SetProfile(nil)
		prof, err := b.session.Profile(ctx)
		if err != nil {
			return errMsg{context: "reload profile", err: err}
		}
		return profileDataMsg{profile: prof}
	})
}

func (p profileModel) savePreferences() tea.Cmd {
	week, chart := *p.weekStart, *p.chartMode
	st := p.b.store
	return func() tea.Msg {
		for k, v := range map[string]string{"week_start": week, "chart_mode": chart} {
			if err := st.SetSetting(k, v); err != nil {
				return errMsg{context: "save preferences", err: err}
			}
		}
		return settingsChangedMsg{}
	}
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func (p profileModel) view() string {
	w := p.width - 4

	if p.formActive && p.form != nil {
		var title string
		switch p.formType {
		case formPassword:
			title = "Change Password"
		case formBackground:
			title = "Background Image"
		case formPreferences:
			title = "Preferences"
		default:
			title = "Edit Profile"
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", p.form.View()),
		)
	}

	title := titleStyle.Render("Profile")
	rows := []string{title, ""}

	label := lipgloss.NewStyle().Width(20)
	if p.profile == nil {
		rows = append(rows, mutedStyle.Render("  Loading profile..."))
	} else {
		pr := p.profile
		name := strings.TrimSpace(pr.FirstName + " " + pr.LastName)
		if name == "" {
			name = "-"
		}
		bg := "none"
		if pr.BackgroundImageURL != "" {
			bg = pr.BackgroundImageURL
		}
		rows = append(rows,
			"  "+label.Render("Username")+highlightStyle.Render(pr.Username),
			"  "+label.Render("Name")+name,
			"  "+label.Render("Email")+orDash(pr.Email),
			"  "+label.Render("Background")+mutedStyle.Render(truncate(bg, max(10, w-30))),
		)
	}

	rows = append(rows, "", highlightStyle.Render("  Preferences"))
	for _, s := range p.settings {
		if s.Key == "last_month" {
			continue
		}
		rows = append(rows, "  "+label.Render(s.Key)+s.Value)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  e: edit  p: password  b: background  d: remove background  enter: preferences  L: logout"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
