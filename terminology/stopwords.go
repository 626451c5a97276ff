package terminology

// stopwords are high-frequency Russian function words excluded when
// counting significant words for density.
var stopwords = map[string]struct{}{
	"и": {}, "в": {}, "не": {}, "на": {}, "с": {}, "что": {},
	"а": {}, "это": {}, "как": {}, "по": {}, "для": {}, "но": {},
	"от": {}, "к": {}, "за": {}, "из": {}, "или": {}, "то": {},
	"же": {}, "так": {}, "вы": {}, "он": {}, "она": {}, "они": {},
	"мы": {}, "весь": {}, "уже": {}, "еще": {}, "бы": {}, "вот": {},
	"когда": {}, "может": {}, "быть": {}, "есть": {}, "был": {},
	"была": {}, "были": {},
}

// IsStopword reports whether the lowercase word is a stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
