// Package whisperx transcribes audio artifacts with WhisperX.
//
// Audio is first resampled with ffmpeg to the mono 16 kHz PCM WAV the
// speech model expects, then WhisperX runs through uvx and its JSON output
// supplies both the transcript text and the detected language. External
// commands go through a replaceable runner so tests never spawn processes.
package whisperx
