// Package render lays out generated notes as a PDF document.
//
// Notes follow a small line-oriented convention: "###" opens a main
// heading, "##" a sub-heading, "--" a bullet, and fence lines are dropped.
// Everything else is body text. Blank lines close a section and add
// vertical space.
package render
