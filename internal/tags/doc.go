// Package tags reads title, album and artist fields from local audio files for the
// terminal host. MP3 files are read through ID3v2 frames, FLAC files through their
// Vorbis comment block. The album artist (TPE2 / ALBUMARTIST) is preferred over the
// track artist when present.
package tags
