package phi

// commonNames seeds the phonetic name dictionary. It covers frequent US
// given names and surnames; per-session rosters extend it through
// [NewNameDetector]. Matching is phonetic, so spelling variants
// ("Jon", "Jhon") resolve against the canonical entries.
var commonNames = []string{
	// Given names.
	"james", "john", "robert", "michael", "william", "david", "richard",
	"joseph", "thomas", "charles", "christopher", "daniel", "matthew",
	"anthony", "mark", "donald", "steven", "paul", "andrew", "joshua",
	"kenneth", "kevin", "brian", "george", "timothy", "ronald", "edward",
	"jason", "jeffrey", "ryan", "jacob", "gary", "nicholas", "eric",
	"jonathan", "stephen", "larry", "justin", "scott", "brandon",
	"mary", "patricia", "jennifer", "linda", "elizabeth", "barbara",
	"susan", "jessica", "sarah", "karen", "lisa", "nancy", "betty",
	"margaret", "sandra", "ashley", "kimberly", "emily", "donna",
	"michelle", "carol", "amanda", "dorothy", "melissa", "deborah",
	"stephanie", "rebecca", "sharon", "laura", "cynthia", "kathleen",
	"amy", "angela", "helen", "anna", "brenda", "pamela", "nicole",
	"samantha", "katherine", "christine", "emma", "catherine",

	// Surnames.
	"smith", "johnson", "williams", "brown", "jones", "garcia", "miller",
	"davis", "rodriguez", "martinez", "hernandez", "lopez", "gonzalez",
	"wilson", "anderson", "thompson", "taylor", "moore", "jackson",
	"martin", "lee", "perez", "white", "harris", "sanchez", "clark",
	"ramirez", "lewis", "robinson", "walker", "young", "allen", "king",
	"wright", "torres", "nguyen", "hill", "flores", "green", "adams",
	"nelson", "baker", "hall", "rivera", "campbell", "mitchell",
	"carter", "roberts", "gomez", "phillips", "evans", "turner",
	"diaz", "parker", "cruz", "edwards", "collins", "reyes", "stewart",
	"morris", "morales", "murphy", "cook", "rogers", "gutierrez",
	"ortiz", "morgan", "cooper", "peterson", "bailey", "reed", "kelly",
	"howard", "ramos", "kim", "cox", "ward", "richardson", "watson",
	"brooks", "chavez", "wood", "bennett", "gray", "mendoza",
	"ruiz", "hughes", "price", "alvarez", "castillo", "sanders",
	"patel", "myers", "long", "ross", "foster", "jimenez",
}
