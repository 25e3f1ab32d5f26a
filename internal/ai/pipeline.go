package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// PipelineConfig holds settings for the local ONNX text-generation
// pipeline. ModelPath points at an exported causal LM, VocabPath at a
// JSON token-to-id map.
type PipelineConfig struct {
	ModelPath string
	VocabPath string
	LibPath   string
	MaxTokens int
}

// Pipeline runs greedy decoding against a local ONNX causal language
// model. It accepts models whose only inputs are input_ids and an
// optional attention_mask.
type Pipeline struct {
	mu sync.Mutex

	modelPath string
	maxTokens int

	session  *ort.DynamicAdvancedSession
	hasMask  bool
	vocab    map[string]int64
	tokens   map[int64]string
	eosID    int64
	unkID    int64
	hasEOS   bool
	hasUnkID bool
}

// NewPipeline loads the vocabulary and opens an ONNX session. It fails
// if the model declares inputs beyond input_ids and attention_mask.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.LibPath != "" {
		ort.SetSharedLibraryPath(cfg.LibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("onnx init environment: %w", err)
	}

	vocab, err := loadVocab(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocab: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model has no inputs or outputs")
	}

	hasMask := false
	inputNames := make([]string, 0, len(inputs))
	for _, in := range inputs {
		switch in.Name {
		case "input_ids":
		case "attention_mask":
			hasMask = true
		default:
			return nil, fmt.Errorf("unsupported model input %q", in.Name)
		}
		inputNames = append(inputNames, in.Name)
	}
	sort.Strings(inputNames)

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		inputNames, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx new session: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 128
	}

	p := &Pipeline{
		modelPath: cfg.ModelPath,
		maxTokens: maxTokens,
		session:   session,
		hasMask:   hasMask,
		vocab:     vocab,
		tokens:    make(map[int64]string, len(vocab)),
	}
	for tok, id := range vocab {
		p.tokens[id] = tok
	}
	for _, eos := range []string{"<|endoftext|>", "</s>", "<eos>"} {
		if id, ok := vocab[eos]; ok {
			p.eosID, p.hasEOS = id, true
			break
		}
	}
	if id, ok := vocab["<unk>"]; ok {
		p.unkID, p.hasUnkID = id, true
	}
	return p, nil
}

func loadVocab(path string) (map[string]int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vocab map[string]int64
	if err := json.Unmarshal(raw, &vocab); err != nil {
		return nil, err
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab %q is empty", path)
	}
	return vocab, nil
}

func (p *Pipeline) Name() string { return "local-pipeline" }

func (p *Pipeline) ChatStyle() bool { return false }

func (p *Pipeline) Generate(ctx context.Context, prompt string) (string, error) {
	ids := p.encode(prompt)
	if len(ids) == 0 {
		return "", fmt.Errorf("prompt produced no tokens")
	}
	promptLen := len(ids)

	for len(ids)-promptLen < p.maxTokens {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		next, err := p.step(ids)
		if err != nil {
			return "", err
		}
		if p.hasEOS && next == p.eosID {
			break
		}
		ids = append(ids, next)
	}
	return p.decode(ids[promptLen:]), nil
}

func (p *Pipeline) GenerateChat(ctx context.Context, system, user string) (string, error) {
	return p.Generate(ctx, system+"\n\n"+user)
}

// step runs one forward pass and returns the argmax token over the
// logits for the final position.
func (p *Pipeline) step(ids []int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seqLen := int64(len(ids))
	shape := ort.NewShape(1, seqLen)

	idsTensor, err := ort.NewTensor(shape, append([]int64(nil), ids...))
	if err != nil {
		return 0, fmt.Errorf("onnx new input tensor: %w", err)
	}
	defer idsTensor.Destroy()

	inputs := []ort.Value{idsTensor}
	if p.hasMask {
		mask := make([]int64, len(ids))
		for i := range mask {
			mask[i] = 1
		}
		maskTensor, err := ort.NewTensor(shape, mask)
		if err != nil {
			return 0, fmt.Errorf("onnx new mask tensor: %w", err)
		}
		defer maskTensor.Destroy()
		// Input order must match the sorted names given to the session.
		inputs = []ort.Value{maskTensor, idsTensor}
	}

	outputs := []ort.Value{nil}
	if err := p.session.Run(inputs, outputs); err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}
	defer outputs[0].Destroy()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected output tensor type")
	}
	logits := logitsTensor.GetData()
	vocabSize := len(logits) / len(ids)
	if vocabSize == 0 {
		return 0, fmt.Errorf("empty logits")
	}
	last := logits[(len(ids)-1)*vocabSize:]
	if len(last) > vocabSize {
		last = last[:vocabSize]
	}

	best := 0
	for i := 1; i < len(last); i++ {
		if last[i] > last[best] {
			best = i
		}
	}
	return int64(best), nil
}

// encode maps whitespace-separated words to vocab ids, substituting the
// unknown token when present and dropping words otherwise.
func (p *Pipeline) encode(text string) []int64 {
	words := strings.Fields(text)
	ids := make([]int64, 0, len(words))
	for _, w := range words {
		if id, ok := p.vocab[w]; ok {
			ids = append(ids, id)
			continue
		}
		if id, ok := p.vocab[strings.ToLower(w)]; ok {
			ids = append(ids, id)
			continue
		}
		if p.hasUnkID {
			ids = append(ids, p.unkID)
		}
	}
	return ids
}

// decode joins tokens with spaces, skipping specials like <unk>.
func (p *Pipeline) decode(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		tok, ok := p.tokens[id]
		if !ok {
			continue
		}
		if strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") {
			continue
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " ")
}

// Close releases the ONNX session.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		if err := p.session.Destroy(); err != nil {
			return err
		}
		p.session = nil
	}
	return nil
}
