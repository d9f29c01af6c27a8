// Package ui implements the terminal side of the plugin's user interaction using bubbletea's
// Elm architecture.
//
// The dialogs answer the questions the authenticator cannot decide on its own:
//  1. [Prompter.ConfirmReauthorize] : y/n after a saved sign-in expired
//  2. [Prompter.ChooseSetup] : browser sign-in, developer app, or not now
//  3. [Prompter.EnterDeveloperCredential] : client id and masked secret form
//
// Each dialog is a small model run to completion by its own [tea.Program]. Search outcomes are
// reported through [Notifier], which prints a lipgloss-styled line and rings the terminal bell
// in place of a system sound. [Clipboard] writes resolved URLs to the OS clipboard.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
