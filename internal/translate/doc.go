// Package translate implements the transcript translation stage.
//
// Fenced code blocks are swapped for CODE_BLOCK_n placeholders before any
// text leaves the process, prose is split at sentence boundaries into
// chunks the backend accepts, and the translated chunks are joined with a
// single space before the code blocks are put back.
package translate
