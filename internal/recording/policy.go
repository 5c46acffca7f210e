package recording

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultPlaylist is the hold music the caller hears until staff join.
var DefaultPlaylist = []string{
	"https://assets.ctfassets.net/j7pfe8y48ry3/530pLnJVZmiUu8mkEgIMm2/dd33d28ab6af9a2d32681ae80004886e/oaklawn-dreams.mp3",
	"https://assets.ctfassets.net/j7pfe8y48ry3/2toXv1xuOsMm0Yku0YEGya/a792ce81a7866fc77f6768d416018012/broken-shovel.mp3",
	"https://assets.ctfassets.net/j7pfe8y48ry3/16VJzaewWsKWg4GsSUiwGi/9b715be5e8c850e46de98b64e6d31141/lennys-song.mp3",
	"https://assets.ctfassets.net/j7pfe8y48ry3/1qApZVYkxaiayA6aysGAOo/8983586c8ab4db8b69490718469a12f5/new-juno.mp3",
	"https://assets.ctfassets.net/j7pfe8y48ry3/6iXXKtJCp2oCMiGmsmAKqu/8163a8fe863405292ba3609193593add/davis-square-shuffle.mp3",
}

// Decision is what a new conversation should do about recording and hold music.
type Decision struct {
	Record   bool
	MusicURL string

	// EventURL is empty when recording is disabled.
	EventURL string
}

// Policy is fixed per deployment: recording is always on or always off.
type Policy struct {
	enabled     bool
	callbackURL string
	playlist    []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPolicy builds a policy. An empty playlist falls back to DefaultPlaylist;
// a nil rnd is seeded from the clock.
func NewPolicy(enabled bool, callbackURL string, playlist []string, rnd *rand.Rand) *Policy {
	if len(playlist) == 0 {
		playlist = DefaultPlaylist
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Policy{
		enabled:     enabled,
		callbackURL: callbackURL,
		playlist:    append([]string(nil), playlist...),
		rnd:         rnd,
	}
}

func (p *Policy) Enabled() bool { return p.enabled }

// Playlist returns the tracks Decide picks from.
func (p *Policy) Playlist() []string {
	return append([]string(nil), p.playlist...)
}

func (p *Policy) Decide() Decision {
	p.mu.Lock()
	i := p.rnd.Intn(len(p.playlist))
	p.mu.Unlock()

	d := Decision{MusicURL: p.playlist[i]}
	if p.enabled {
		d.Record = true
		d.EventURL = p.callbackURL
	}
	return d
}
