package gui

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/fmuoria/apply-portal/internal/api"
	"github.com/fmuoria/apply-portal/internal/config"
	"github.com/fmuoria/apply-portal/internal/export"
	"github.com/fmuoria/apply-portal/internal/logger"
	"github.com/fmuoria/apply-portal/internal/models"
	"github.com/fmuoria/apply-portal/internal/portal"
)

const (
	appID       = "com.fmuoria.applyportal"
	windowTitle = "Nimble Gravity — Bot Filter Challenge"

	introText = "Buscá tu candidato por email, elegí una posición y enviá la URL de tu repositorio."
)

// App represents the main GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	config     *config.Config
	portal     *portal.Portal

	// spawn runs a blocking portal operation off the UI thread
	spawn func(func())

	// UI Components
	emailEntry         *widget.Entry
	searchBtn          *widget.Button
	candidateErrLabel  *widget.Label
	candidateInfoLabel *widget.Label
	jobsLoadingLabel   *widget.Label
	jobsErrLabel       *widget.Label
	jobsBox            *fyne.Container
	exportBtn          *widget.Button
	baseURLEntry       *widget.Entry

	cards     map[string]*jobCard
	cardOrder []string
}

// NewApp creates a new GUI application talking to cfg.APIBaseURL
func NewApp(cfg *config.Config, p *portal.Portal) *App {
	return newApp(app.NewWithID(appID), cfg, p)
}

func newApp(fyneApp fyne.App, cfg *config.Config, p *portal.Portal) *App {
	w := fyneApp.NewWindow(windowTitle)
	w.Resize(fyne.NewSize(720, 800))

	a := &App{
		fyneApp:    fyneApp,
		mainWindow: w,
		config:     cfg,
		portal:     p,
		spawn:      func(fn func()) { go fn() },
		cards:      map[string]*jobCard{},
	}

	a.setupUI()

	// Portal callbacks fire on worker goroutines
	p.SetChangeCallback(func() {
		fyne.Do(a.refresh)
	})
	a.refresh()

	return a
}

// Run loads the job list and starts the GUI application
func (a *App) Run() {
	a.spawn(func() {
		a.portal.LoadJobs(context.Background())
	})
	a.mainWindow.ShowAndRun()
}

// setupUI initializes all UI components
func (a *App) setupUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Postulación", a.createProcessTab()),
		container.NewTabItem("Settings", a.createSettingsTab()),
	)

	a.mainWindow.SetContent(tabs)
}

// createProcessTab creates the candidate lookup and job list
func (a *App) createProcessTab() fyne.CanvasObject {
	intro := widget.NewLabel(introText)
	intro.Wrapping = fyne.TextWrapWord

	a.emailEntry = widget.NewEntry()
	a.emailEntry.SetPlaceHolder("tu.email@ejemplo.com")
	a.emailEntry.OnChanged = a.portal.SetEmail
	a.emailEntry.OnSubmitted = func(string) { a.handleSearch() }

	a.searchBtn = widget.NewButton("Buscar", a.handleSearch)
	a.searchBtn.Importance = widget.HighImportance

	a.candidateErrLabel = newBanner(widget.DangerImportance)
	a.candidateInfoLabel = newBanner(widget.SuccessImportance)

	candidateSection := container.NewVBox(
		widget.NewLabelWithStyle("Step 2 — Obtener candidato por email", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, a.searchBtn, a.emailEntry),
		a.candidateErrLabel,
		a.candidateInfoLabel,
	)

	a.jobsLoadingLabel = widget.NewLabel("Cargando posiciones...")
	a.jobsErrLabel = newBanner(widget.DangerImportance)
	a.jobsBox = container.NewVBox()

	a.exportBtn = widget.NewButton("Exportar a Excel", a.handleExport)
	a.exportBtn.Disable()

	jobsSection := container.NewVBox(
		widget.NewLabelWithStyle("Step 4 — Listado de posiciones", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.jobsLoadingLabel,
		a.jobsErrLabel,
		a.jobsBox,
	)

	return container.NewVScroll(
		container.NewVBox(
			intro,
			widget.NewSeparator(),
			candidateSection,
			widget.NewSeparator(),
			jobsSection,
			widget.NewSeparator(),
			container.NewHBox(a.exportBtn),
		),
	)
}

// createSettingsTab lets the user point the session at another backend
func (a *App) createSettingsTab() fyne.CanvasObject {
	a.baseURLEntry = widget.NewEntry()
	a.baseURLEntry.SetText(a.config.APIBaseURL)
	a.baseURLEntry.SetPlaceHolder("https://api.example.com")

	form := widget.NewForm(
		widget.NewFormItem("API Base URL", a.baseURLEntry),
	)

	applyBtn := widget.NewButton("Aplicar", func() {
		if err := a.applyBaseURL(a.baseURLEntry.Text); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Backend updated, reloading positions", a.mainWindow)
	})

	note := widget.NewLabel("The change lasts for this session only.")
	note.Importance = widget.LowImportance

	return container.NewVBox(
		form,
		container.NewHBox(applyBtn),
		note,
	)
}

// applyBaseURL validates raw, swaps the backend and reloads the jobs
func (a *App) applyBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if err := config.ValidateBaseURL(raw); err != nil {
		return err
	}

	a.config.APIBaseURL = raw
	a.portal.SetBackend(api.NewClient(raw, nil))
	logger.Named("gui").Infow("backend changed", "base_url", raw)

	a.spawn(func() {
		a.portal.LoadJobs(context.Background())
	})
	return nil
}

func (a *App) handleSearch() {
	a.spawn(func() {
		a.portal.LookupCandidate(context.Background())
	})
}

func (a *App) handleRepoURLChange(jobID, value string) {
	a.portal.SetRepoURL(jobID, value)
}

func (a *App) handleSubmit(jobID string) {
	a.spawn(func() {
		a.portal.Submit(context.Background(), jobID)
	})
}

// handleExport writes the current submissions to a workbook
func (a *App) handleExport() {
	dialog.ShowFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return // User canceled
		}
		defer uc.Close()

		outputPath := uc.URI().Path()

		s := a.portal.Snapshot()
		report := export.Report{Candidate: s.Candidate, Records: s.Records()}
		if err := export.ExportToExcel(report, outputPath); err != nil {
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.mainWindow)
			return
		}

		dialog.ShowInformation("Success", "Report exported to "+filepath.Base(outputPath), a.mainWindow)
	}, a.mainWindow)
}

// refresh renders the whole window from a portal snapshot
func (a *App) refresh() {
	s := a.portal.Snapshot()

	if s.CandidateLoading {
		a.searchBtn.SetText("Buscando...")
		a.searchBtn.Disable()
	} else {
		a.searchBtn.SetText("Buscar")
		a.searchBtn.Enable()
	}
	setBanner(a.candidateErrLabel, s.CandidateError)
	setBanner(a.candidateInfoLabel, candidateSummary(s.Candidate))

	if s.JobsLoading {
		a.jobsLoadingLabel.Show()
	} else {
		a.jobsLoadingLabel.Hide()
	}
	setBanner(a.jobsErrLabel, s.JobsError)

	a.renderJobs(s)

	if len(s.Jobs) > 0 {
		a.exportBtn.Enable()
	} else {
		a.exportBtn.Disable()
	}
}

// renderJobs keeps one card per job, reusing cards across refreshes
func (a *App) renderJobs(s portal.State) {
	var jobs []models.Job
	if !s.JobsLoading && s.JobsError == "" {
		jobs = s.Jobs
	}

	order := make([]string, 0, len(jobs))
	visible := make([]models.Job, 0, len(jobs))
	seen := map[string]bool{}
	for _, job := range jobs {
		key := job.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, key)
		visible = append(visible, job)
	}

	if !slices.Equal(order, a.cardOrder) {
		objects := make([]fyne.CanvasObject, 0, len(order))
		cards := make(map[string]*jobCard, len(order))
		for _, key := range order {
			card, ok := a.cards[key]
			if !ok {
				card = newJobCard(key, a.handleRepoURLChange, a.handleSubmit)
			}
			cards[key] = card
			objects = append(objects, card.object())
		}
		a.cards = cards
		a.cardOrder = order
		a.jobsBox.Objects = objects
		a.jobsBox.Refresh()
	}

	for _, job := range visible {
		key := job.Key()
		st := s.SubmitState(key)
		a.cards[key].render(jobCardProps{
			Job:        job,
			RepoURL:    s.RepoURL(key),
			Submitting: st.Loading,
			Error:      st.Error,
			Success:    st.Success,
		})
	}
}

func candidateSummary(c *models.Candidate) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("uuid: %s\ncandidateId: %s", c.UUID.String(), c.CandidateID.String())
}
