package callconfirmed

import (
	"strconv"

	"Flywheel/internal/videos"
)

var prepSteps = []string{
	"Watch the short video so you know how the call runs.",
	"Have your latest deck and fundraising numbers at hand.",
	"Bring the one question you most need answered about your raise.",
}

func title(v videos.Video, fallback string) string {
	if v.Title == "" {
		return fallback
	}
	return v.Title
}

func trainingTitle(i int) string { return "Training Video " + strconv.Itoa(i+1) }
