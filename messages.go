package ecoscan

import (
	"fmt"
	"strings"
)

// Rejection categories that do not come from the label taxonomy.
const (
	RejectQuality        = "quality"
	RejectSuspicious     = "suspicious"
	RejectUnidentifiable = "unidentifiable"
)

// Review reasons.
const (
	ReviewLowCategoryConfidence = "Low confidence in material classification"
	ReviewUnlistedItem          = "Item not in standard marketplace categories"
	ReviewSuspicious            = "Content flagged by suspicion screening"
)

const reasonUnidentifiable = "unidentifiable material"

// rejectionMessages holds one user-facing template per rejection category.
// %s is the detected item.
var rejectionMessages = map[string]string{
	RejectHumans:        "Image rejected: a person (%s) was detected. Please upload photos of the material only, without people.",
	RejectAnimals:       "Image rejected: an animal (%s) was detected. Please upload images of recyclable materials only.",
	RejectDocuments:     "Image rejected: a document (%s) was detected. Documents and personal papers cannot be listed.",
	RejectWeapons:       "Image rejected: a weapon (%s) was detected. Weapons are not allowed on the marketplace.",
	RejectDrugs:         "Image rejected: drugs or medicine (%s) were detected. These items are not allowed on the marketplace.",
	RejectFood:          "Image rejected: food (%s) was detected. Please upload images of recyclable materials only.",
	RejectLivingThings:  "Image rejected: a plant or natural scene (%s) was detected. Please upload images of recyclable materials only.",
	RejectInappropriate: "Image rejected: inappropriate content (%s) was detected.",
	RejectCurrency:      "Image rejected: money (%s) was detected. Currency cannot be listed on the marketplace.",
}

var rejectionRecommendations = map[string][]string{
	RejectHumans:     {"Photograph the item on its own", "Crop out people before uploading"},
	RejectDocuments:  {"Remove documents from the frame", "Never upload IDs or personal papers"},
	RejectQuality:    {"Use good lighting", "Hold the camera steady", "Make sure the item fills the frame"},
	RejectSuspicious: {"Upload a real photo of the material", "Avoid screenshots and photos of screens"},
	RejectUnidentifiable: {
		"Take a closer photo of the material",
		"Upload materials like fabric, wood, metal, plastic, glass or paper",
	},
}

var defaultRecommendations = []string{"Upload a clear photo of a recyclable material"}

func rejectionMessage(category, item string) string {
	if tmpl, ok := rejectionMessages[category]; ok {
		return fmt.Sprintf(tmpl, item)
	}
	return fmt.Sprintf("Image rejected: %s detected in the image. Please upload images of recyclable materials only.", item)
}

func recommendationsFor(category string) []string {
	if r, ok := rejectionRecommendations[category]; ok {
		return append([]string(nil), r...)
	}
	return append([]string(nil), defaultRecommendations...)
}

func qualityMessage(issues []string) string {
	return fmt.Sprintf("Image rejected: %s. Please upload a clear, well-lit photo.", strings.Join(issues, ", "))
}

func approvedMessage(category string) string {
	if category == "" {
		return "Image accepted!"
	}
	return fmt.Sprintf("Image accepted! Material identified as %s. Thank you for contributing to EcoLoop!", category)
}

func categoryReviewMessage(category string) string {
	return fmt.Sprintf("Image sent for admin review. Material appears to be %s but needs verification.", category)
}

func unlistedReviewMessage(label string) string {
	return fmt.Sprintf("Image sent for admin review. Detected '%s' which may or may not be suitable for marketplace.", label)
}

const (
	suspiciousReviewMessage = "Image sent for admin review. The content does not look like a recyclable material."
	suspiciousRejectMessage = "Image rejected: the content does not appear to be a recyclable material."
	unidentifiableMessage   = "Image rejected: Unable to identify as recyclable material. Please upload clear images of materials like fabric, wood, metal, plastic, etc."
)

func errorMessage(err error) string {
	return fmt.Sprintf("Error processing image: %v", err)
}
