package moderation

// leetSpeakMap normalizes common leet-speak substitutions before profanity
// matching, in the substitution order used by the original's
// normalize_text_for_profanity_check.
var leetSpeakMap = []struct{ from, to string }{
	{"@", "a"},
	{"4", "a"},
	{"1", "i"},
	{"!", "i"},
	{"3", "e"},
	{"0", "o"},
	{"5", "s"},
	{"$", "s"},
	{"7", "t"},
	{"+", "t"},
	{"8", "b"},
	{"9", "g"},
}

// profanityWords is the extended list including common euphemisms, typo
// variants, and Hinglish terms carried over verbatim from the original's
// PROFANITY_WORDS set.
var profanityWords = map[string]struct{}{
	"damn": {}, "hell": {}, "crap": {}, "ass": {}, "bitch": {}, "bastard": {}, "piss": {}, "fuck": {}, "shit": {},
	"asshole": {}, "dick": {}, "cock": {}, "pussy": {}, "whore": {}, "slut": {}, "cunt": {},
	"fk": {}, "f*k": {}, "f***": {}, "fu*k": {}, "fck": {}, "fcuk": {},
	"sh*t": {}, "s*it": {}, "sh1t": {}, "shyt": {}, "sheit": {},
	"b*tch": {}, "bit*h": {}, "b!tch": {}, "biatch": {}, "btch": {},
	"a**": {}, "a$s": {}, "azz": {}, "arse": {},
	"h*ll": {}, "hel": {}, "h3ll": {},
	"d@mn": {}, "dammit": {}, "damnit": {},
	"c*ck": {}, "c0ck": {}, "c**k": {}, "cawk": {},
	"pu$$y": {}, "p*ssy": {}, "puss1": {}, "kitty": {},
	"wh0re": {}, "wh*re": {}, "hoar": {},
	"sl*t": {}, "slyt": {}, "sloot": {},
	"c*nt": {}, "cnt": {},
	"bc": {}, "b.c": {}, "b c": {}, "bhd": {},
	"mf": {}, "m.f": {}, "m f": {}, "mofo": {},
	"lodu": {}, "lod": {}, "loda": {},
	"chutiya": {}, "chut": {}, "chutya": {}, "chutiye": {},
	"gaandu": {}, "gandu": {}, "gaand": {},
	"harami": {}, "haram": {}, "haramkhor": {},
	"madarchod": {}, "madarc": {}, "maadarc": {},
	"behenchod": {}, "bewakoof": {}, "bevkoof": {},
	"randi": {}, "rand": {}, "randiya": {},
	"ullu": {}, "ull": {},
	"saali": {}, "sali": {},
	"teri": {}, "tere": {},
}

// profaneRoots are substrings whose presence, combined with excessive
// character repetition, marks a word as a profanity variant (e.g.
// "fuckkkk").
var profaneRoots = []string{
	"fuck", "shit", "damn", "bitch", "cock", "ass", "cunt",
	"chut", "gand", "maadar", "lod", "rand",
}

// hinglishPatterns are additional regex fragments matched directly against
// the raw (non-normalized) message.
var hinglishPatterns = []string{
	`(?i)\b(bc|bhosdike|lodu|chutiya|gaandu|gandu|harami|besharam)\b`,
	`(?i)\b(madarchod|mdarc|behenchod|bevkuf|chakka)\b`,
	`(?i)\b(randi|teri|terepa|saali|ullu|chakli)\b`,
}

// rentalKeywords back the topical-relevance check: a message with too low
// a density of these words is considered off-topic for a rentals platform.
var rentalKeywords = []string{
	"room", "rooms", "flat", "apartment", "bhk", "bh", "studio", "rent",
	"rented", "rental", "lease", "property", "location", "area", "locality",
	"available", "looking", "wanted", "accommodation", "lodging", "tenant",
	"landlord", "owner", "deposit", "advance", "monthly", "furnished",
	"unfurnished", "sharing", "pg", "hostel", "shared", "attached", "bathroom",
	"kitchen", "parking", "vegetarian", "non-veg", "pets", "furnishing",
}

// scamDomains are short-link and messaging domains frequently used to
// route around the platform's own contact-reveal flow.
var scamDomains = []string{
	"t.me", "telegram.me", "telegram.org", "bit.ly", "tinyurl.com", "goo.gl",
	"rebrand.ly", "ow.ly", "lnk.co", "short.link", "bitly.com", "adf.ly",
	"j.mp", "clickbank.net",
}
