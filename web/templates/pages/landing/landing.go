// Package landing is the marketing home page.
package landing

type step struct {
	Title       string
	Description string
	Image       string
}

var steps = []step{
	{
		Title:       "You Provide the Raw Material",
		Description: "The easy part. You share your vision, key milestones, and unique industry insights - the core data we need to begin your narrative audit.",
		Image:       "/static/img/raw-material.jpg",
	},
	{
		Title:       "We Forge Your Narrative",
		Description: "We provide the expert framework and guidance to help you forge your own investor-grade narrative, aligning every word with your fundraising goals.",
		Image:       "/static/img/forge-narrative.jpg",
	},
	{
		Title:       "You Command the Conversation",
		Description: "With a clear strategic roadmap, you can now deploy your PR activities with purpose and precision.",
		Image:       "/static/img/command-conversation.jpg",
	},
}

type person struct {
	Name     string
	Bio      string
	LinkedIn string
}

var team = []person{
	{
		Name: "Jay Jin, Strategic Architect",
		Bio: "Jay is your social influence architect. He helps you identify and engineer the authentic story that investors need to hear, " +
			"turning your lived experience into a capital-attracting force. His expertise leads to a powerful, actionable 90-Day Investment PR Plan " +
			"that makes you more attractive and influential.",
		LinkedIn: "https://www.linkedin.com/in/jay-jin-60071238/",
	},
	{
		Name: "David Yi, Investment Strategist",
		Bio: "David is your cross-border investment strategist. He provides the critical lens of an investor, ensuring every piece of your story " +
			"is calibrated with discernment to attract the right conversations and secure funding.",
		LinkedIn: "https://www.linkedin.com/in/thedavidyi/",
	},
}

var outcomes = []string{"Access Top-Tier Capital", "Higher Valuation Multiples", "Favorable Funding Terms"}

type advantage struct {
	Title string
	Text  string
	Video string
}

var advantages = []advantage{
	{"Investor Magnet", "Your strategic narrative consistently draws potential investors to you, so you don't have to constantly seek them out.", "/static/video/investor-magnet.mp4"},
	{"Funding Advantage", "A clear story helps investors instantly understand your vision and market potential, turning a technical achievement into a compelling commercial story.", "/static/video/funding-advantage.mp4"},
	{"Brand Power", "A well-articulated narrative builds a memorable brand identity that makes your company stand out and stick in the minds of decision-makers.", "/static/video/brand-power.mp4"},
	{"Competitive Edge", "Your unique story differentiates you from the competition, ensuring yours is the one investors remember and discuss.", "/static/video/competitive-edge.mp4"},
}
