package gemini

// Models lists the selectable models; the first entry is the default.
var Models = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-preview-image-generation",
	"gemini-2.5-flash-lite-preview-06-17",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// ImageGenerationModel is the model image-intent turns are routed to.
const ImageGenerationModel = "gemini-2.0-flash-preview-image-generation"

func IsKnownModel(name string) bool {
	for _, m := range Models {
		if m == name {
			return true
		}
	}
	return false
}
