// Package media assembles generated assets into finished audio and video
// files and synthesizes placeholder music tracks.
//
// Video assembly is split into a pure planning layer (music loop counts,
// caption timing, concat lists, the ffmpeg argument vector) and a Runner
// that executes ffmpeg/ffprobe. Stages depend on the Assembler; tests
// exercise the planning functions directly and drive the Assembler with
// stub binaries.
//
// The narration track is authoritative: background music is looped and
// trimmed to the narration duration exactly, and the output video is capped
// to it. Tool failures surface the stderr tail verbatim so encoder
// diagnostics survive into job records.
package media
