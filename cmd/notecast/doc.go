// Package main hosts the notecast CLI.
//
// Commands run the pipeline in-process (run), start the HTTP daemon
// (serve), inspect or delete artifacts (files, clean), check the host
// (doctor), and scaffold configuration (config). Heavy lifting lives in the
// internal packages; commands here only resolve configuration and render
// results.
package main
