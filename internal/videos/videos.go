// Package videos reads the list of preparation videos shown after a call is booked.
package videos

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
)

type Video struct {
	Title    string
	URL      string
	EmbedURL string
}

// Load reads a ';'-separated file of title;url rows. The header row is
// optional, rows without a URL are skipped, and a missing file is an empty list.
func Load(path string) ([]Video, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open videos: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) ([]Video, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out []Video
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse videos: %w", err)
		}
		if first {
			first = false
			if strings.Contains(strings.ToLower(strings.Join(rec, ";")), "video_title") {
				continue
			}
		}
		var title, link string
		if len(rec) > 0 {
			title = strings.TrimSpace(rec[0])
		}
		if len(rec) > 1 {
			link = strings.TrimSpace(rec[1])
		}
		if link == "" {
			continue
		}
		out = append(out, Video{Title: title, URL: link, EmbedURL: EmbedURL(link)})
	}
	return out, nil
}

// EmbedURL rewrites YouTube watch and short links to their embeddable form.
// Anything else comes back unchanged.
func EmbedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := u.Hostname()
	if strings.Contains(host, "youtube.com") {
		if v := u.Query().Get("v"); v != "" {
			return "https://www.youtube.com/embed/" + v
		}
		return raw
	}
	if host == "youtu.be" {
		if id := strings.TrimPrefix(u.Path, "/"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	}
	return raw
}
