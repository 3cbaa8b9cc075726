// internal/catalog/bank.go
package catalog

// bank holds every question the packs can draw from. The content mirrors the
// shipped question set; it is static data, never mutated at runtime.
var bank = []Question{
	// TEXT - cute basics
	{ID: "text-1", Type: TypeText, Prompt: "What's my go-to comfort food when I'm tired?", MaxLen: 100},
	{ID: "text-2", Type: TypeText, Prompt: "What's the first thing I do when I wake up?", MaxLen: 100},
	{ID: "text-3", Type: TypeText, Prompt: "What's my 'order at a cafe' default?", MaxLen: 100},
	{ID: "text-4", Type: TypeText, Prompt: "What's a tiny habit of mine you find adorable?", MaxLen: 100},
	{ID: "text-5", Type: TypeText, Prompt: "What emoji do I overuse when texting you?", MaxLen: 50},

	// TEXT - daily life
	{ID: "text-6", Type: TypeText, Prompt: "What's my most used app besides messaging?", MaxLen: 100},
	{ID: "text-7", Type: TypeText, Prompt: "If I had a completely free day, what would I actually do?", MaxLen: 150},
	{ID: "text-8", Type: TypeText, Prompt: "What do I complain about most often?", MaxLen: 100},
	{ID: "text-9", Type: TypeText, Prompt: "What's my 'I need cheering up' song or activity?", MaxLen: 100},
	{ID: "text-10", Type: TypeText, Prompt: "What's the weirdest thing I do when I'm home alone?", MaxLen: 100},

	// TEXT - memories
	{ID: "text-11", Type: TypeText, Prompt: "What was I wearing on our first date?", Helper: "Take your best guess!", MaxLen: 100},
	{ID: "text-12", Type: TypeText, Prompt: "What's my favorite memory of us together?", MaxLen: 150},
	{ID: "text-13", Type: TypeText, Prompt: "What's the funniest thing that happened to us?", MaxLen: 150},
	{ID: "text-14", Type: TypeText, Prompt: "What song reminds me most of you?", MaxLen: 100},
	{ID: "text-15", Type: TypeText, Prompt: "What's the best gift you've ever given me?", MaxLen: 100},

	// TEXT - preferences
	{ID: "text-16", Type: TypeText, Prompt: "What's a nickname I secretly like being called?", MaxLen: 50},
	{ID: "text-17", Type: TypeText, Prompt: "What's my dream vacation destination with you?", MaxLen: 100},
	{ID: "text-18", Type: TypeText, Prompt: "What movie could I watch over and over?", MaxLen: 100},
	{ID: "text-19", Type: TypeText, Prompt: "What's my secret talent that not everyone knows about?", MaxLen: 100},
	{ID: "text-20", Type: TypeText, Prompt: "What's the one thing I can't live without?", MaxLen: 100},

	// TEXT - future / dreams
	{ID: "text-21", Type: TypeText, Prompt: "If I could teleport right now, where would I go with you?", MaxLen: 100},
	{ID: "text-22", Type: TypeText, Prompt: "What's something I've always wanted to try with you?", MaxLen: 100},
	{ID: "text-23", Type: TypeText, Prompt: "What would be my dream date night?", MaxLen: 150},
	{ID: "text-24", Type: TypeText, Prompt: "What do I want us to do together in the next year?", MaxLen: 150},
	{ID: "text-25", Type: TypeText, Prompt: "What's a skill or hobby I want to learn someday?", MaxLen: 100},

	// THIS_OR_THAT
	{ID: "tot-1", Type: TypeThisOrThat, Prompt: "I'd rather have...", Options: []string{"Movie night 🎬", "Game night 🎮"}},
	{ID: "tot-2", Type: TypeThisOrThat, Prompt: "I'm more of a...", Options: []string{"Planner 🗓️", "Spontaneous 🎲"}},
	{ID: "tot-3", Type: TypeThisOrThat, Prompt: "I prefer...", Options: []string{"Beach 🌊", "Mountains ⛰️"}},
	{ID: "tot-4", Type: TypeThisOrThat, Prompt: "My messages are usually...", Options: []string{"Short and sweet 😶", "Long essays 🧾"}},
	{ID: "tot-5", Type: TypeThisOrThat, Prompt: "Best date for me:", Options: []string{"Cozy at home 🛋️", "Going out ✨"}},
	{ID: "tot-6", Type: TypeThisOrThat, Prompt: "When upset, I need...", Options: []string{"Space to process 🌙", "Immediate comfort 🤗"}},
	{ID: "tot-7", Type: TypeThisOrThat, Prompt: "I express love more through...", Options: []string{"Words 💬", "Actions 💝"}},
	{ID: "tot-8", Type: TypeThisOrThat, Prompt: "For a snack, I'd pick...", Options: []string{"Sweet treats 🍫", "Savory bites 🧀"}},
	{ID: "tot-9", Type: TypeThisOrThat, Prompt: "On weekends I prefer...", Options: []string{"Sleeping in 😴", "Early adventures ☀️"}},
	{ID: "tot-10", Type: TypeThisOrThat, Prompt: "I'd rather receive...", Options: []string{"Surprise gifts 🎁", "Planned experiences 🎫"}},

	// MULTI_CHOICE
	{ID: "mc-1", Type: TypeMultiChoice, Prompt: "Which gift would make me happiest?", Options: []string{"Something handmade 🎨", "A surprise trip 🌍", "My favorite food 🍕", "Quality time together 💕"}},
	{ID: "mc-2", Type: TypeMultiChoice, Prompt: "When do I feel most alive?", Options: []string{"Morning ☀️", "Afternoon 🌤️", "Evening 🌙", "2am Goblin Mode 👹"}},
	{ID: "mc-3", Type: TypeMultiChoice, Prompt: "My ideal way to spend a rainy day:", Options: []string{"Watching movies 📺", "Reading a book 📚", "Cooking together 👨‍🍳", "Taking a nap 😴"}},
	{ID: "mc-4", Type: TypeMultiChoice, Prompt: "What I value most in our relationship:", Options: []string{"Trust 🤝", "Laughter 😄", "Communication 💬", "Adventure 🚀"}},
	{ID: "mc-5", Type: TypeMultiChoice, Prompt: "My go-to stress relief is:", Options: []string{"Exercise 🏃", "Talking to you 💕", "Music & alone time 🎧", "Comfort food 🍦"}},

	// SCALE
	{ID: "scale-1", Type: TypeScale, Prompt: "How much do I like surprises?", Helper: "1 = hate them, 5 = love them", Options: []string{"1", "2", "3", "4", "5"}},
	{ID: "scale-2", Type: TypeScale, Prompt: "How social am I feeling this month?", Helper: "1 = total hermit, 5 = party animal", Options: []string{"1", "2", "3", "4", "5"}},
	{ID: "scale-3", Type: TypeScale, Prompt: "How adventurous am I with food?", Helper: "1 = stick to favorites, 5 = try everything", Options: []string{"1", "2", "3", "4", "5"}},
	{ID: "scale-4", Type: TypeScale, Prompt: "How much do I need personal space?", Helper: "1 = always together, 5 = need lots of me-time", Options: []string{"1", "2", "3", "4", "5"}},
	{ID: "scale-5", Type: TypeScale, Prompt: "How romantic am I on a daily basis?", Helper: "1 = practical love, 5 = hopeless romantic", Options: []string{"1", "2", "3", "4", "5"}},
}

var packs = []Pack{
	{
		ID: "cute-basics", Name: "Cute Basics", Emoji: "💕",
		Description: "Sweet everyday questions to start with",
		QuestionIDs: []string{"text-1", "text-2", "text-3", "text-4", "text-5", "tot-1", "tot-2", "tot-3", "mc-1", "scale-1"},
	},
	{
		ID: "daily-life", Name: "Daily Life", Emoji: "☀️",
		Description: "How well do you know their routines?",
		QuestionIDs: []string{"text-6", "text-7", "text-8", "text-9", "text-10", "tot-4", "tot-5", "tot-6", "mc-2", "scale-2"},
	},
	{
		ID: "memories", Name: "Memories", Emoji: "📸",
		Description: "Revisit your favorite moments together",
		QuestionIDs: []string{"text-11", "text-12", "text-13", "text-14", "text-15", "tot-7", "tot-8", "mc-3", "mc-4", "scale-3"},
	},
	{
		ID: "preferences", Name: "Preferences", Emoji: "✨",
		Description: "Discover each other's favorites",
		QuestionIDs: []string{"text-16", "text-17", "text-18", "text-19", "text-20", "tot-9", "tot-10", "mc-5", "scale-4", "scale-5"},
	},
	{
		ID: "future-dreams", Name: "Future & Dreams", Emoji: "🌟",
		Description: "Where are you headed together?",
		QuestionIDs: []string{"text-21", "text-22", "text-23", "text-24", "text-25", "tot-1", "tot-3", "tot-5", "mc-1", "scale-1"},
	},
}
