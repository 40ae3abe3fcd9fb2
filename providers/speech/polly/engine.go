// Package polly implements the native speech engine on Amazon Polly. Derived
// rate and pitch parameters are expressed as SSML prosody so native narration
// matches the persona's remote voice character.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/internal/narration"
	"github.com/tiger/oracle-voice-sessions/providers/common/httpadapter"
)

const ProviderID = "speech-amazon-polly"

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type Config struct {
	Region  string
	VoiceID string
	Engine  string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Region:  defaultString(os.Getenv("ORACLE_POLLY_REGION"), defaultString(os.Getenv("AWS_REGION"), "us-east-1")),
		VoiceID: defaultString(os.Getenv("ORACLE_POLLY_VOICE"), "Joanna"),
		Engine:  defaultString(os.Getenv("ORACLE_POLLY_ENGINE"), "neural"),
		Timeout: 15 * time.Second,
	}
}

// Engine synthesizes through Polly and renders through the injected player.
// Implements narration.Engine.
type Engine struct {
	mu     sync.Mutex
	client synthClient
	cfg    Config
	player narration.Player
}

func NewEngine(cfg Config, player narration.Player) (*Engine, error) {
	return NewEngineWithClient(cfg, player, nil)
}

func NewEngineWithClient(cfg Config, player narration.Player, client synthClient) (*Engine, error) {
	if player == nil {
		return nil, fmt.Errorf("audio player is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "Joanna"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Engine{client: client, cfg: cfg, player: player}, nil
}

// Speak synthesizes the utterance with prosody from params and plays it.
// started fires through the player when audio becomes audible, so synthesis
// failures surface before playback and permit fallback.
func (e *Engine) Speak(ctx context.Context, text string, params oracle.EngineParams, started func()) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("utterance text is empty")
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("engine params: %w", err)
	}
	client, err := e.resolveClient()
	if err != nil {
		return err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(e.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}
	ssml := BuildSSML(text, params)

	synthCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	output, err := client.SynthesizeSpeech(synthCtx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &ssml,
		TextType:     pollytypes.TextTypeSsml,
		VoiceId:      pollytypes.VoiceId(e.cfg.VoiceID),
	})
	if err != nil {
		return fmt.Errorf("polly synthesis: %w", normalizeError(err))
	}
	if output == nil || output.AudioStream == nil {
		return fmt.Errorf("polly synthesis returned an empty audio stream")
	}
	defer output.AudioStream.Close()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return fmt.Errorf("read polly audio stream: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("polly synthesis returned an empty payload")
	}

	if err := e.player.Play(ctx, audio, started); err != nil {
		return fmt.Errorf("polly playback: %w", err)
	}
	return nil
}

// BuildSSML wraps the escaped utterance in a prosody element. Rate maps to a
// percentage of normal speed, pitch to a signed percent offset.
func BuildSSML(text string, params oracle.EngineParams) string {
	rate := int(math.Round(params.Rate * 100))
	pitch := int(math.Round((params.Pitch - 1) * 100))
	return fmt.Sprintf(`<speak><prosody rate="%d%%" pitch="%+d%%">%s</prosody></speak>`,
		rate, pitch, escapeSSML(text))
}

var ssmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escapeSSML(text string) string {
	return ssmlEscaper.Replace(text)
}

func normalizeError(err error) error {
	if errors.Is(err, context.Canceled) {
		return httpadapter.Outcome{Class: httpadapter.OutcomeCancelled, Reason: "provider_cancelled"}.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return httpadapter.Outcome{Class: httpadapter.OutcomeTimeout, Retryable: true, Reason: "provider_timeout"}.Err()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException":
			return httpadapter.Outcome{Class: httpadapter.OutcomeOverload, Retryable: true, Reason: "provider_overload", BackoffMS: 500}.Err()
		case "InvalidSsmlException", "TextLengthExceededException", "LexiconNotFoundException", "InvalidSampleRateException":
			return httpadapter.Outcome{Class: httpadapter.OutcomeBlocked, Reason: "provider_client_error"}.Err()
		default:
			return httpadapter.Outcome{Class: httpadapter.OutcomeInfrastructureFailure, Retryable: true, Reason: "provider_server_error"}.Err()
		}
	}
	return httpadapter.Outcome{Class: httpadapter.OutcomeInfrastructureFailure, Retryable: true, Reason: "provider_transport_error"}.Err()
}

func defaultString(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func (e *Engine) resolveClient() (synthClient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(e.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	e.client = polly.NewFromConfig(awsCfg)
	return e.client, nil
}
