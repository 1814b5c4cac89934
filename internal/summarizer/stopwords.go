package summarizer

// English and Turkish function words excluded from scoring.
var stopwords = toSet(
	// en
	"the", "a", "an", "and", "or", "but", "if", "then", "else", "when", "while", "for", "to", "of",
	"in", "on", "at", "by", "with", "from", "as", "is", "are", "was", "were", "be", "been", "being",
	"it", "this", "that", "these", "those", "i", "you", "he", "she", "we", "they", "them", "his",
	"her", "their", "our", "your", "my", "me", "us", "do", "does", "did", "doing", "so", "not", "no",
	"yes", "can", "could", "should", "would", "may", "might", "will", "just", "about", "into",
	"over", "after", "before", "than", "also", "too", "very",
	// tr
	"ve", "veya", "ama", "fakat", "ancak", "ile", "de", "da", "mi", "mu", "mı", "mü", "bir", "bu",
	"şu", "o", "için", "gibi", "ya", "hem", "hemde", "daha", "çok", "az", "en", "ki", "ne", "nasıl",
	"niçin", "neden", "çünkü", "değil", "var", "yok", "hangi", "her", "bazı", "hiç", "şey", "biz",
	"siz", "ben", "sen", "onlar", "olarak", "olan", "olanlar", "kadar", "sonra", "önce", "ise", "yada",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
