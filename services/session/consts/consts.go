package consts

const (
	// Upload formats
	ExtMP3 = ".mp3"
	ExtM4A = ".m4a"
	ExtVTT = ".vtt"
	ExtTXT = ".txt"

	TranscriptSuffix = "_transcript.txt"

	DefaultUploadDir = "recordings"
	DefaultOutputDir = "outputs"
)

var allowedExtensions = map[string]struct{}{
	ExtMP3: {},
	ExtM4A: {},
	ExtVTT: {},
	ExtTXT: {},
}

func ExtensionAllowed(ext string) bool {
	_, ok := allowedExtensions[ext]
	return ok
}
