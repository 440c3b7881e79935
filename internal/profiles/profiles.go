// Package profiles holds the static codec, audio, and container preset
// tables, the audio/container compatibility relation, and the
// session-scoped encoder availability cache.
package profiles

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CodecProfile is a video encoding preset. Encoder is empty for stream
// copy, which needs no encoder compiled into ffmpeg.
type CodecProfile struct {
	Name    string
	Args    []string
	Encoder string
}

// AudioProfile is an audio encoding preset.
type AudioProfile struct {
	Name string
	Args []string
}

// ContainerProfile is an output container format.
type ContainerProfile struct {
	Name string
	Ext  string
}

// CodecCopy is the index of the stream-copy codec preset.
const CodecCopy = 0

// Codecs are the selectable video presets, indexed by UI position.
var Codecs = []CodecProfile{
	{Name: "Copy (no re-encode)", Args: []string{"-c", "copy"}},
	{Name: "H.264 Balanced", Args: []string{"-c:v", "libx264", "-crf", "20", "-preset", "medium"}, Encoder: "libx264"},
	{Name: "HEVC Balanced", Args: []string{"-c:v", "libx265", "-crf", "22", "-preset", "medium"}, Encoder: "libx265"},
	{Name: "AV1 (SVT preset 2)", Args: []string{"-c:v", "libsvtav1", "-preset", "2"}, Encoder: "libsvtav1"},
	{Name: "H264/AAC (Discord-friendly)", Args: []string{"-c:v", "libx264", "-pix_fmt", "yuv420p", "-crf", "20", "-preset", "slow", "-profile:v", "high"}, Encoder: "libx264"},
}

// Audio are the selectable audio presets, indexed by UI position.
var Audio = []AudioProfile{
	{Name: "AAC (192k)", Args: []string{"-c:a", "aac", "-b:a", "192k"}},
	{Name: "AAC (128k)", Args: []string{"-c:a", "aac", "-b:a", "128k"}},
	{Name: "MP3 (320k)", Args: []string{"-c:a", "libmp3lame", "-b:a", "320k"}},
	{Name: "MP3 (256k)", Args: []string{"-c:a", "libmp3lame", "-b:a", "256k"}},
	{Name: "MP3 (128k)", Args: []string{"-c:a", "libmp3lame", "-b:a", "128k"}},
	{Name: "Opus (128k)", Args: []string{"-c:a", "libopus", "-b:a", "128k"}},
	{Name: "Opus (96k)", Args: []string{"-c:a", "libopus", "-b:a", "96k"}},
	{Name: "Vorbis (192k)", Args: []string{"-c:a", "libvorbis", "-b:a", "192k"}},
	{Name: "FLAC (lvl 8)", Args: []string{"-c:a", "flac", "-compression_level", "8"}},
}

// Containers are the selectable output containers, indexed by UI
// position.
var Containers = []ContainerProfile{
	{Name: "MP4", Ext: "mp4"},
	{Name: "MKV", Ext: "mkv"},
	{Name: "AVI", Ext: "avi"},
}

// audioContainerCompat restricts which containers each audio preset may
// pair with. Opus, Vorbis and FLAC only mux into MKV here.
var audioContainerCompat = map[int][]int{
	0: {0, 1, 2},
	1: {0, 1, 2},
	2: {0, 1, 2},
	3: {0, 1, 2},
	4: {0, 1, 2},
	5: {1},
	6: {1},
	7: {1},
	8: {1},
}

// ValidCodec reports whether the index selects a codec preset.
func ValidCodec(index int) bool {
	return index >= 0 && index < len(Codecs)
}

// ValidAudio reports whether the index selects an audio preset.
func ValidAudio(index int) bool {
	return index >= 0 && index < len(Audio)
}

// ValidContainer reports whether the index selects a container.
func ValidContainer(index int) bool {
	return index >= 0 && index < len(Containers)
}

// AllowedContainers returns the container indexes the audio preset may
// pair with, sorted ascending. Unknown audio indexes allow every
// container.
func AllowedContainers(audioIndex int) []int {
	allowed, ok := audioContainerCompat[audioIndex]
	if !ok {
		all := make([]int, len(Containers))
		for i := range Containers {
			all[i] = i
		}
		return all
	}
	out := make([]int, len(allowed))
	copy(out, allowed)
	sort.Ints(out)
	return out
}

// Compatible reports whether the audio preset may pair with the
// container.
func Compatible(audioIndex, containerIndex int) bool {
	for _, c := range AllowedContainers(audioIndex) {
		if c == containerIndex {
			return true
		}
	}
	return false
}

// ContainerNames formats container names for the given indexes, for
// error messages listing valid alternatives.
func ContainerNames(indexes []int) string {
	names := make([]string, 0, len(indexes))
	for _, i := range indexes {
		if ValidContainer(i) {
			names = append(names, Containers[i].Name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// AudioEncoder extracts the encoder name from an audio preset's args
// (the value following -c:a), or "" when the preset carries none.
func AudioEncoder(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-c:a" {
			return args[i+1]
		}
	}
	return ""
}

// Availability is a session-scoped tri-state cache of encoder
// availability per profile index: absent = unknown, true = available,
// false = definitively unavailable. Checks run from background
// goroutines, so access is guarded.
type Availability struct {
	mu    sync.Mutex
	known map[int]bool
}

// NewAvailability returns an empty cache.
func NewAvailability() *Availability {
	return &Availability{known: make(map[int]bool)}
}

// Get returns (available, known).
func (a *Availability) Get(index int) (bool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.known[index]
	return v, ok
}

// Set records a probe result.
func (a *Availability) Set(index int, available bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.known[index] = available
}

// Forget drops a cached result, returning the index to unknown.
func (a *Availability) Forget(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.known, index)
}

// Unavailable reports whether the encoder is definitively known to be
// missing. Unknown is not unavailable.
func (a *Availability) Unavailable(index int) bool {
	v, ok := a.Get(index)
	return ok && !v
}

// String renders the cache for status displays, e.g. "2/5 probed".
func (a *Availability) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	avail := 0
	for _, v := range a.known {
		if v {
			avail++
		}
	}
	return fmt.Sprintf("%d probed, %d available", len(a.known), avail)
}
