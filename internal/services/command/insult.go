package command

import "strings"

// Picker returns a value in [0, n).
type Picker func(n int) int

// targetToken is replaced with the insult's target.
const targetToken = "%u"

var insultLines = []string{
	"%u, you have the most %a %d, and %f %b I have ever seen!",
	"%u loves %c %d.",
	"%u likes to suck on %g!",
	"I think %u has %f %b and %f %d.",
	"%u you are %h.",
	"I saw %u %c %g!!",
	"%u looks forward to %c %g!",
	"%u, you have no %b and I saw you %c %h",
	"%u you are the %a person who ever walked the Earth!",
	"%u prepare for your meal....it is a side salad topped with %d",
	"%u, Im going to beat you to death with %h because you love %c %g!",
	"%u you are a rotton lump of turd floating around sucking on %d",
	"%u, didnt I see you last night %c %f %g ?",
	"%u you are %h and your mother is %h who loves %c %d!",
	"%u you wear the %a hats which have -> I have no %b <- on them.",
	"%u. Wheres your %b gone? Without it your just a bag of %d!",
}

// insultWords are the placeholder classes, in substitution order.
var insultWords = []struct {
	token string
	words []string
}{
	{"%a", []string{"smeggiest", "rubbishest", "smelliest", "cackest", "shitest", "narrowest", "fattest"}},
	{"%b", []string{"style", "curly hair", "dress sense", "teeth", "mother", "left ventricle", "sophistication"}},
	{"%c", []string{"chompping on", "revising with", "collecting", "looking at holiday snapshots of", "socialising with", "wiping peoples bottoms with", "packing peoples pants with ample amounts of"}},
	{"%d", []string{"Rimmers Underpants", "lead models of Rimmers mum", "Listers old turds", "Krytens spare heads", "Listers used hankerchiefs", "mouldy lumps of dog turd", "shaven headed bald people"}},
	{"%f", []string{"the Most Rimmer like", "the smeggiest", "the greasiest", "the gittiest", "the most stark raving mad", "the worst", "the most comical"}},
	{"%g", []string{"toes", "socks", "urine samples", "urine filled caskets", "424 CPU iDENT chips", "weebles", "brown leather satchels", "photographs of listers toes", "blow football sets", "small sacks of canoeing gear", "dogs", "cans of Wicked strength lager"}},
	{"%h", []string{"a half eaten lolly pop head", "a smeg head", "a genetically deformed lumpfish", "a wickstand head", "a meat tenderiser head", "one of herman munsters stunt doubles", "a piece of sputom in the toilet of life", "a weasly scum sucking liar", "a goit", "a git with all the charm and wit of a public louse", "a old series 3000 without a slideback sunroof head", "a smeg head who could possibly be drink tommorows lunch through a straw", "a pollop on the anus of humanity", "a floating turd in the rock pool of life", "a sack of listers old socks", "a urine filled casket", "a weeble", "a disgusting dung heap"}},
}

// Insult picks a template and fills it in for target. Each placeholder
// occurrence gets its own random word.
func Insult(target string, pick Picker) string {
	line := insultLines[pick(len(insultLines))]
	line = strings.ReplaceAll(line, targetToken, target)
	for _, class := range insultWords {
		for strings.Contains(line, class.token) {
			line = strings.Replace(line, class.token, class.words[pick(len(class.words))], 1)
		}
	}
	return line
}
