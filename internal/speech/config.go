package speech

import "time"

// Azure voices per normalized language.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const (
	DefaultVoiceEnglish = "en-US-AvaNeural"
	DefaultVoiceHindi   = "hi-IN-SwaraNeural"
)

// DefaultAudioFormat is the Azure output format. MP3 keeps Azure and the
// translate endpoint interchangeable for the player and the cache.
const DefaultAudioFormat = "audio-24khz-48kbitrate-mono-mp3"

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// Playback output. go-mp3 always decodes to 16-bit stereo, so the
// device is opened with two channels and mono WAV is duplicated.
const (
	ChannelCount = 2
	BitDepth     = 16
)

// googleChunkLimit is the longest text the translate TTS endpoint
// accepts in one request.
const googleChunkLimit = 100

const defaultHTTPTimeout = 30 * time.Second
