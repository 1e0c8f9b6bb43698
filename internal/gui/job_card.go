package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/fmuoria/apply-portal/internal/models"
)

const repoURLPlaceholder = "https://github.com/tu-usuario/tu-repo"

// jobCardProps is everything a row renders from
type jobCardProps struct {
	Job        models.Job
	RepoURL    string
	Submitting bool
	Error      string
	Success    string
}

// jobCard renders one job row. It owns widgets only; the text, flags and
// messages all come from props, and every event goes back up with the job id.
type jobCard struct {
	jobID string

	card         *widget.Card
	repoURLEntry *widget.Entry
	submitBtn    *widget.Button
	errorLabel   *widget.Label
	successLabel *widget.Label
}

func newJobCard(jobID string, onRepoURLChange func(jobID, value string), onSubmit func(jobID string)) *jobCard {
	c := &jobCard{jobID: jobID}

	c.repoURLEntry = widget.NewEntry()
	c.repoURLEntry.SetPlaceHolder(repoURLPlaceholder)
	c.repoURLEntry.OnChanged = func(value string) {
		onRepoURLChange(c.jobID, value)
	}

	c.submitBtn = widget.NewButton("Submit", func() {
		onSubmit(c.jobID)
	})

	c.errorLabel = newBanner(widget.DangerImportance)
	c.successLabel = newBanner(widget.SuccessImportance)

	c.card = widget.NewCard("", "", container.NewVBox(
		c.repoURLEntry,
		c.submitBtn,
		c.errorLabel,
		c.successLabel,
	))

	return c
}

// render applies props to the widgets
func (c *jobCard) render(props jobCardProps) {
	if c.card.Title != props.Job.Title {
		c.card.SetTitle(props.Job.Title)
	}

	// Only push text the entry does not already show, so typing keeps the cursor.
	if c.repoURLEntry.Text != props.RepoURL {
		c.repoURLEntry.SetText(props.RepoURL)
	}

	if props.Submitting {
		c.submitBtn.SetText("Submitting...")
		c.submitBtn.Disable()
	} else {
		c.submitBtn.SetText("Submit")
		c.submitBtn.Enable()
	}

	setBanner(c.errorLabel, props.Error)
	setBanner(c.successLabel, props.Success)
}

func (c *jobCard) object() fyne.CanvasObject {
	return c.card
}

// newBanner creates a hidden, colored message label
func newBanner(importance widget.Importance) *widget.Label {
	label := widget.NewLabel("")
	label.Importance = importance
	label.Wrapping = fyne.TextWrapWord
	label.Hide()
	return label
}

// setBanner shows text in the banner, or hides it when text is empty
func setBanner(label *widget.Label, text string) {
	if text == "" {
		label.Hide()
		return
	}
	if label.Text != text {
		label.SetText(text)
	}
	label.Show()
}
