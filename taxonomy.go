package ecoscan

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
)

// KeywordSet is one named entry of an ordered keyword taxonomy.
type KeywordSet struct {
	Name     string
	Keywords []string
}

// Marketplace material categories.
const (
	CategoryFabric      = "fabric"
	CategoryWood        = "wood"
	CategoryMetal       = "metal"
	CategoryPlastic     = "plastic"
	CategoryGlass       = "glass"
	CategoryPaper       = "paper"
	CategoryElectronics = "electronics"
	CategoryRubber      = "rubber"
	CategoryLeather     = "leather"

	// CategoryRecyclable is the synthetic category assigned by the
	// general-recyclable fallback.
	CategoryRecyclable = "recyclable"
)

// Rejection categories.
const (
	RejectHumans        = "humans"
	RejectAnimals       = "animals"
	RejectDocuments     = "documents"
	RejectWeapons       = "weapons"
	RejectDrugs         = "drugs"
	RejectFood          = "food"
	RejectLivingThings  = "living_things"
	RejectInappropriate = "inappropriate"
	RejectCurrency      = "currency"
)

// MarketplaceCategories is matched in declaration order: the first category
// with any keyword hit wins, so overlapping keywords ("bottle" vs
// "wine_bottle") resolve to the earlier category.
var MarketplaceCategories = []KeywordSet{
	{CategoryFabric, []string{"jersey", "velvet", "wool", "denim", "scarf", "sweater", "t-shirt", "sweatshirt", "cardigan", "fabric", "textile", "quilt"}},
	{CategoryWood, []string{"wooden_spoon", "cutting_board", "timber", "plywood", "lumber", "wood", "plank", "pallet", "crate"}},
	{CategoryMetal, []string{"hammer", "wrench", "nail", "screw", "tin_can", "aluminum", "steel", "iron", "chain", "padlock"}},
	{CategoryPlastic, []string{"bottle", "container", "bucket", "cup", "plastic_bag", "bottle_cap", "plastic", "jug"}},
	{CategoryGlass, []string{"wine_bottle", "beer_bottle", "jar", "drinking_glass", "vase", "beer_glass", "goblet", "glass"}},
	{CategoryPaper, []string{"cardboard", "carton", "box", "packaging", "newspaper", "paper"}},
	{CategoryElectronics, []string{"computer", "laptop", "phone", "remote_control", "battery", "keyboard", "printer", "modem", "hard_disc"}},
	{CategoryRubber, []string{"tire", "boot", "mat", "eraser", "glove"}},
	{CategoryLeather, []string{"handbag", "wallet", "boot", "shoe", "belt", "jacket", "purse", "leather", "loafer"}},
}

// ReliableCategories are auto-approved at ReliableCategoryBar; every other
// category needs StandardCategoryBar.
var ReliableCategories = map[string]bool{
	CategoryWood:    true,
	CategoryPlastic: true,
	CategoryMetal:   true,
	CategoryGlass:   true,
}

// GeneralRecyclableTerms catch labels outside the taxonomy that still look
// like a recyclable item.
var GeneralRecyclableTerms = []KeywordSet{
	{CategoryRecyclable, []string{"container", "material", "item", "packet", "bag", "case", "bin", "tray", "pot", "rack", "tube", "wire", "scrap"}},
}

// RejectedCategories are mutually exclusive and matched in declaration order.
var RejectedCategories = []KeywordSet{
	{RejectHumans, []string{"person", "people", "face", "portrait", "selfie", "human", "groom", "bride", "scuba_diver", "ballplayer", "baby", "child", "woman"}},
	{RejectAnimals, []string{"animal", "pet", "_dog", "puppy", "kitten", "_cat", "tabby", "retriever", "terrier", "spaniel", "poodle", "collie", "hound", "bird", "parrot", "goldfish", "hamster", "rabbit", "horse", "sheep"}},
	{RejectDocuments, []string{"document", "certificate", "passport", "id_card", "license", "envelope", "menu", "receipt", "book_jacket", "diploma", "invoice"}},
	{RejectWeapons, []string{"weapon", "gun", "rifle", "revolver", "pistol", "knife", "blade", "sword", "cleaver", "missile", "cannon", "grenade", "holster"}},
	{RejectDrugs, []string{"drug", "medicine", "pill", "syringe", "cigarette", "narcotic", "hookah", "marijuana", "cocaine"}},
	{RejectFood, []string{"food", "pizza", "burger", "hotdog", "sandwich", "banana", "apple", "orange", "lemon", "strawberry", "broccoli", "cauliflower", "cucumber", "mushroom", "bagel", "pretzel", "ice_cream", "meat", "burrito", "guacamole", "espresso", "carbonara", "trifle", "potpie", "dough", "soup", "cake", "bread", "cheese"}},
	{RejectLivingThings, []string{"plant", "flower", "tree", "daisy", "sunflower", "leaf", "coral", "landscape", "valley", "cliff", "seashore", "lakeside", "volcano"}},
	{RejectInappropriate, []string{"adult", "nude", "nudity", "explicit", "violence", "blood", "bikini", "brassiere", "lingerie"}},
	{RejectCurrency, []string{"currency", "money", "banknote", "cash", "coin", "dollar"}},
}

// DocumentKeywords is the expanded document indicator list. Each set name
// is the document type reported when one of its keywords matches.
var DocumentKeywords = []KeywordSet{
	{"id_card", []string{"id_card", "identity", "_card", "license", "licence"}},
	{"passport", []string{"passport"}},
	{"certificate", []string{"certificate", "diploma"}},
	{"mail", []string{"envelope", "mailbag", "postcard", "letter_paper"}},
	{"receipt", []string{"receipt", "invoice", "ticket"}},
	{"printed_document", []string{"document", "paper_form", "forms", "menu", "book_jacket", "comic_book", "crossword"}},
}

// HighConfidenceRecyclables is the override lookup table: a top label
// containing one of these terms at HighConfidenceOverride or above is
// approved without document or suspicion checks. Specific terms precede
// generic ones. The override runs before rejection matching, so a label
// like "pill_bottle" is approved through "bottle" at that confidence.
var HighConfidenceRecyclables = []KeywordSet{
	{CategoryGlass, []string{"beer_bottle", "wine_bottle", "jar"}},
	{CategoryPlastic, []string{"water_bottle", "pop_bottle", "plastic_bag", "bottle", "container", "bucket"}},
	{CategoryMetal, []string{"tin_can", "screwdriver", "hammer", "wrench", "tool"}},
	{CategoryPaper, []string{"carton", "cardboard"}},
}

// PlasticContainerIndicators suppress the "pet" animal match: PET plastic,
// not a domestic pet.
var PlasticContainerIndicators = []string{"bottle", "container", "plastic", "cup", "jar", "bowl", "tray"}

// Suspicion screener vocabularies.
var (
	InappropriateKeywords = []string{"weapon", "gun", "drug", "adult", "violence", "nude", "explicit", "blood"}
	PortraitKeywords      = []string{"person", "face", "portrait", "selfie", "people", "human", "groom", "bride"}
	ScreenKeywords        = []string{"web_site", "screenshot", "screen", "monitor", "television", "scoreboard"}
)

const petKeyword = "pet"

var (
	categoryIndex      = newKeywordIndex(MarketplaceCategories)
	generalIndex       = newKeywordIndex(GeneralRecyclableTerms)
	rejectionIndex     = newKeywordIndex(RejectedCategories)
	documentIndex      = newKeywordIndex(DocumentKeywords)
	overrideIndex      = newKeywordIndex(HighConfidenceRecyclables)
	plasticIndex       = newKeywordIndex([]KeywordSet{{"plastic", PlasticContainerIndicators}})
	inappropriateIndex = newKeywordIndex([]KeywordSet{{"inappropriate", InappropriateKeywords}})
	portraitIndex      = newKeywordIndex([]KeywordSet{{"portrait", PortraitKeywords}})
	screenIndex        = newKeywordIndex([]KeywordSet{{"screen", ScreenKeywords}})
)

// keywordHit is one keyword found in a label.
type keywordHit struct {
	Set     int    // index into the taxonomy
	Name    string // taxonomy entry name
	Keyword string
}

type keywordRef struct {
	set     int
	keyword int
}

// keywordIndex is an immutable Aho-Corasick automaton over an ordered
// taxonomy. It is built once at init and safe for concurrent use.
type keywordIndex struct {
	sets    []KeywordSet
	dict    []string                // unique normalized keywords
	refs    map[string][]keywordRef // keyword -> declaration positions
	matcher *ahocorasick.Matcher
}

func newKeywordIndex(sets []KeywordSet) *keywordIndex {
	ix := &keywordIndex{
		sets: sets,
		refs: make(map[string][]keywordRef),
	}
	for si, set := range sets {
		for ki, kw := range set.Keywords {
			norm := normalizeLabel(kw)
			if norm == "" {
				continue
			}
			if _, seen := ix.refs[norm]; !seen {
				ix.dict = append(ix.dict, norm)
			}
			ix.refs[norm] = append(ix.refs[norm], keywordRef{set: si, keyword: ki})
		}
	}
	if len(ix.dict) > 0 {
		ix.matcher = ahocorasick.NewStringMatcher(ix.dict)
	}
	return ix
}

// matches returns every keyword hit in label, ordered by declaration
// (taxonomy entry first, then keyword position within the entry).
func (ix *keywordIndex) matches(label string) []keywordHit {
	norm := normalizeLabel(label)
	if ix.matcher == nil || norm == "" {
		return nil
	}

	hits := ix.matcher.MatchThreadSafe([]byte(norm))
	if len(hits) == 0 {
		return nil
	}

	refs := make([]keywordRef, 0, len(hits))
	for _, h := range hits {
		if h < 0 || h >= len(ix.dict) {
			continue
		}
		refs = append(refs, ix.refs[ix.dict[h]]...)
	}
	sortRefs(refs)

	out := make([]keywordHit, 0, len(refs))
	for i, r := range refs {
		if i > 0 && refs[i-1] == r {
			continue
		}
		out = append(out, keywordHit{
			Set:     r.set,
			Name:    ix.sets[r.set].Name,
			Keyword: ix.sets[r.set].Keywords[r.keyword],
		})
	}
	return out
}

// first returns the earliest declared hit in label.
func (ix *keywordIndex) first(label string) (keywordHit, bool) {
	hits := ix.matches(label)
	if len(hits) == 0 {
		return keywordHit{}, false
	}
	return hits[0], true
}

// contains reports whether label has any keyword of the index.
func (ix *keywordIndex) contains(label string) bool {
	_, ok := ix.first(label)
	return ok
}

func sortRefs(refs []keywordRef) {
	// Insertion sort: hit lists are a handful of entries.
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refLess(refs[j], refs[j-1]); j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
}

func refLess(a, b keywordRef) bool {
	if a.set != b.set {
		return a.set < b.set
	}
	return a.keyword < b.keyword
}

// normalizeLabel case-folds a classifier label or keyword for matching.
// A Caser is stateful, so one is created per call.
func normalizeLabel(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
