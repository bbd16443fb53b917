// Package media implements the audio collaborators of the pipeline on top of
// ffmpeg and ffprobe: loudness-normalized editing and silence removal.
//
// Output files are written next to their input. Editing produces
// <stem>_edited<ext>; silence removal produces <stem>_trimmed<ext> and reports
// both durations in seconds as measured by ffprobe.
package media
