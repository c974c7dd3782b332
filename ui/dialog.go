package ui

import (
	"github.com/rivo/tview"
)

const dialogPage = "dialog"

// centered wraps p in a flex that keeps it in the middle of the screen
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(p, width, 1, true).
			AddItem(nil, 0, 1, false),
			height, 1, true).
		AddItem(nil, 0, 1, false)
}

// showDialog puts a form on top of the main page
func showDialog(pages *tview.Pages, form *tview.Form, width, height int) {
	pages.AddPage(dialogPage, centered(form, width, height), true, true)
}

func closeDialog(pages *tview.Pages) {
	pages.RemovePage(dialogPage)
}

// showMessage shows a modal message box. Each title gets its own page so an
// error raised while a form dialog is open does not replace the form.
func showMessage(pages *tview.Pages, title, text string) {
	name := "message:" + title
	modal := tview.NewModal().
		SetText(title + "\n\n" + text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			pages.RemovePage(name)
		})
	pages.AddPage(name, modal, false, true)
}
