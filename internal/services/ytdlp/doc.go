// Package ytdlp acquires audio artifacts with yt-dlp.
//
// The client walks an ordered list of format preferences until one download
// produces an MP3, then normalizes the path yt-dlp chose. Failures from the
// last attempt are classified so callers can tell private, missing and
// removed videos apart.
package ytdlp
