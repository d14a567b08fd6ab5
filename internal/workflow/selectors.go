package workflow

import "seatcap/internal/locate"

// Login form.
const (
	EmailField    = "#login_user_email"
	PasswordField = "#login_user_password"
	LoginSubmit   = "#new_login_user button"
)

// CalendarLinks are the sidebar entries tried, in order, to open the calendar.
var CalendarLinks = []string{
	`#sidebar a[href*="calendar"]`,
	"#sidebar a:nth-of-type(3)",
}

// Labels of the controls the workflow looks for, most specific first.
var (
	EditPhrases    = []string{"editar clase", "edit class", "editar", "edit"}
	SavePhrases    = []string{"guardar", "actualizar", "save", "update", "editar", "edit"}
	ConfirmPhrases = []string{
		"editar solo esta clase",
		"solo esta clase",
		"solo esta",
		"only this class",
		"this occurrence only",
		"only this event",
	}

	// SeriesWords mark the series-wide action in the post-save dialog. A
	// label containing any of them is never chosen by text match.
	SeriesWords = []string{"todas", "all", "serie", "siguientes", "following"}
)

const (
	editControlStructural = `a.btn.btn-primary[href*="edit"], button.btn-primary[data-url*="edit"], button.btn-primary[data-href*="edit"]`
	dialogControls        = "button, a, .btn"
	formSubmitControls    = `button, input[type="submit"], a[role="button"]`
	dialogActionArea      = ".modal-footer button, .modal-footer a"
)

// EditControl opens the edit form from the event detail dialog.
func EditControl() locate.Chain {
	d := locate.DialogSelector
	return locate.Chain{
		locate.Selector(d, editControlStructural),
		locate.Text(d, dialogControls, EditPhrases, nil),
		locate.Selector(d, ".btn-primary"),
	}
}

// CapacityField is the seat-count input on the edit form.
func CapacityField() locate.Chain {
	return locate.Chain{
		locate.Selector("", "#schedule_lesson_availability"),
		locate.Selector("", `input[name*="availability"]`),
		locate.Selector("", `input[name*="capacity"]`),
		locate.Selector("", `input[id*="capacity"]`),
		locate.Selector("", `input[name*="cupo"]`),
	}
}

// SaveControl submits the edit form.
func SaveControl() locate.Chain {
	return locate.Chain{
		locate.Text("form", formSubmitControls, SavePhrases, nil),
		locate.Selector("", `form button[type="submit"]`),
		locate.Selector("", `form input[type="submit"]`),
		locate.Selector("", "form .btn-primary"),
		locate.Selector("", "form .btn-success"),
		locate.Selector("", `.content button[type="submit"]`),
	}
}

// ConfirmControl applies the change to this occurrence only. Text match
// runs before the positional fallback, and neither ever picks a
// series-wide control.
func ConfirmControl() locate.Chain {
	d := locate.DialogSelector
	return locate.Chain{
		locate.Text(d, "button, a", ConfirmPhrases, SeriesWords),
		locate.SelectorExcept(d, dialogActionArea, SeriesWords),
	}
}
