// Package audio holds the PCM plumbing shared by the synthesis engines:
// sample formats, gain and rate conversion, pausable playback streams,
// the oto-backed speaker output and the WAV writer used for exports.
//
// All sample data is interleaved signed 16-bit little-endian PCM.
package audio
