package whisperx

// Config captures runtime settings for WhisperX invocations.
type Config struct {
	// UVXBinary runs WhisperX from PyPI without a managed virtualenv.
	UVXBinary string
	// FFmpegBinary resamples audio before inference.
	FFmpegBinary string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// ComputeType is passed to CTranslate2 on CPU ("int8", "float32").
	ComputeType string
}

// WhisperX invocation constants.
const (
	CUDAIndexURL       = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL       = "https://pypi.org/simple"
	BatchSize          = "8"
	BeamSize           = "5"
	OutputFormat       = "json"
	CPUDevice          = "cpu"
	CUDADevice         = "cuda"
	DefaultComputeType = "int8"
	CUDAComputeType    = "float16"
	SampleRate         = "16000"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)

// modelNames maps request model sizes to WhisperX model identifiers.
var modelNames = map[string]string{
	"tiny":   "tiny",
	"base":   "base",
	"small":  "small",
	"medium": "medium",
	"large":  "large-v3",
}

// ModelName resolves a request model size to the WhisperX model identifier.
// Unknown sizes fall back to "base".
func ModelName(size string) string {
	if name, ok := modelNames[size]; ok {
		return name
	}
	return modelNames["base"]
}
