package types

import "regexp"

// NameRegex matches the `[a-z]+-[a-z]+` shape the default name
// generator produces. A numeric collision-retry suffix is appended
// outside of this pattern.
var NameRegex = regexp.MustCompile(`^[a-z]+-[a-z]+$`)

// Adjectives and Animals are the curated word lists the default
// "<adjective>-<animal>" container name is drawn from.
var Adjectives = []string{
	"admiring", "agitated", "amazing", "angry", "awesome", "blissful",
	"bold", "brave", "busy", "charming", "clever", "cool", "crazy",
	"dazzling", "determined", "eager", "elastic", "elegant", "eloquent",
	"epic", "fervent", "festive", "flamboyant", "focused", "friendly",
	"gallant", "gifted", "gracious", "happy", "hardcore", "heuristic",
	"hopeful", "hungry", "infallible", "inspiring", "jolly", "jovial",
	"keen", "kind", "laughing", "loving", "lucid", "modest", "musing",
	"nervous", "nifty", "nostalgic", "objective", "optimistic", "peaceful",
	"pensive", "practical", "priceless", "quirky", "quizzical", "relaxed",
	"reverent", "romantic", "sharp", "silly", "sleepy", "stoic", "stupefied",
	"suspicious", "sweet", "tender", "thirsty", "trusting", "unruffled",
	"upbeat", "vibrant", "vigilant", "vigorous", "wizardly", "wonderful",
	"xenodochial", "youthful", "zealous", "zen",
}

var Animals = []string{
	"albatross", "alligator", "antelope", "badger", "bat", "bear", "bee",
	"beetle", "bison", "boar", "buffalo", "butterfly", "camel", "cat",
	"cheetah", "chicken", "cobra", "cormorant", "coyote", "crab", "crane",
	"crow", "deer", "dingo", "dolphin", "donkey", "dove", "dragonfly",
	"duck", "eagle", "eel", "elephant", "elk", "falcon", "ferret", "finch",
	"fox", "frog", "gazelle", "gecko", "gibbon", "giraffe", "goat",
	"goose", "gorilla", "hamster", "hare", "hawk", "hedgehog", "heron",
	"hippo", "hornet", "hyena", "ibex", "iguana", "impala", "jackal",
	"jaguar", "jellyfish", "kangaroo", "koala", "lemur", "leopard",
	"lion", "lizard", "llama", "lynx", "magpie", "manatee", "mantis",
	"marmot", "meerkat", "mongoose", "monkey", "moose", "moth", "mouse",
	"newt", "ocelot", "octopus", "okapi", "opossum", "orca", "ostrich",
	"otter", "owl", "ox", "panda", "panther", "parrot", "peacock",
	"pelican", "penguin", "pheasant", "pig", "pigeon", "platypus",
	"porcupine", "puma", "quail", "quokka", "rabbit", "raccoon", "ram",
	"raven", "rhino", "salamander", "seahorse", "seal", "serval", "shark",
	"sheep", "shrimp", "skunk", "sloth", "snail", "snake", "sparrow",
	"spider", "squid", "squirrel", "stingray", "stork", "swan", "tapir",
	"termite", "tiger", "toad", "toucan", "turkey", "turtle", "urchin",
	"vulture", "wallaby", "walrus", "wasp", "weasel", "whale", "wolf",
	"wolverine", "wombat", "woodpecker", "yak", "zebra",
}
