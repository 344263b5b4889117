package fragment

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// BlockKind tells why a block was emitted.
type BlockKind uint8

const (
	KindRequired BlockKind = iota
	KindTier
	KindCompanion
	KindChain
)

func (k BlockKind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindTier:
		return "tier"
	case KindCompanion:
		return "companion"
	case KindChain:
		return "chain"
	}
	return "unknown"
}

// Block is one emitted fragment.
type Block struct {
	Name    string
	Rel     string
	Kind    BlockKind
	Content []byte
}

// Buffer is the append-only output of an aggregation.
type Buffer struct {
	blocks []Block
	size   int64
}

// Append adds a block to the end of the buffer.
func (b *Buffer) Append(blk Block) {
	b.blocks = append(b.blocks, blk)
	b.size += int64(len(header(blk.Name))+len(blk.Content)) + int64(len(trailer))
}

// Blocks returns the emitted blocks in order. Do not modify the result.
func (b *Buffer) Blocks() []Block { return b.blocks }

// Len is the number of blocks.
func (b *Buffer) Len() int { return len(b.blocks) }

// Size is the number of bytes WriteTo produces.
func (b *Buffer) Size() int64 { return b.size }

// Names returns the file name of every block in order.
func (b *Buffer) Names() []string {
	out := make([]string, len(b.blocks))
	for i, blk := range b.blocks {
		out[i] = blk.Name
	}
	return out
}

const trailer = "\n\n"

func header(name string) string {
	return "// " + name + "\n"
}

// WriteTo streams every block with its provenance header.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, blk := range b.blocks {
		n, err := io.WriteString(w, header(blk.Name))
		total += int64(n)
		if err != nil {
			return total, err
		}
		m, err := w.Write(blk.Content)
		total += int64(m)
		if err != nil {
			return total, err
		}
		n, err = io.WriteString(w, trailer)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Bytes renders the whole buffer.
func (b *Buffer) Bytes() []byte {
	var out bytes.Buffer
	out.Grow(int(b.size))
	_, _ = b.WriteTo(&out)
	return out.Bytes()
}

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	Logger *log.Logger
	// OnBlock is called after each block is appended.
	OnBlock func(Block)
	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

// Aggregate emits the required fragments from srcDir and then every tier of
// scan in order, splicing companions before their primary and chains after
// their trigger.
func Aggregate(srcDir string, rules Rules, scan *ScanResult, opts AggregateOptions) (*Buffer, error) {
	a := &aggregator{
		logger:  logging.OrNop(opts.Logger),
		onBlock: opts.OnBlock,
		read:    opts.ReadFile,
		buf:     &Buffer{},
		emitted: make(map[string]bool),
	}
	if a.read == nil {
		a.read = os.ReadFile
	}

	for _, req := range rules.Required {
		p := filepath.Join(srcDir, req.Name)
		content, err := a.read(p)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, diag.Wrap(diag.ReadFailed, p, err)
			}
			if req.Fatal {
				return nil, &diag.Error{Code: diag.MissingRequiredFragment, Path: p, Message: req.Message}
			}
			a.logger.Debug("Skipping missing optional fragment", "file", req.Name)
			continue
		}
		a.logger.Debug("Reading required file", "file", req.Name)
		a.append(Block{Name: req.Name, Rel: req.Name, Kind: KindRequired, Content: content})
	}

	for _, tier := range Tiers() {
		a.logger.Debug("Starting to read files", "tier", tier.String())
		for _, f := range scan.Tier(tier) {
			if scan.InChain(f.Name) {
				continue
			}
			if companion, ok := scan.Companions.Take(f); ok {
				a.logger.Debug("Reading companion file", "file", companion.Name, "primary", f.Name)
				if err := a.emit(companion, KindCompanion); err != nil {
					return nil, err
				}
			}
			a.logger.Debug("Reading file", "tier", tier.String(), "file", f.Name)
			if err := a.emit(f, KindTier); err != nil {
				return nil, err
			}
			chain, ok := scan.Chain(f.Name)
			if !ok {
				continue
			}
			if a.chained(f.Name) {
				a.logger.Warn("Chain already emitted after an earlier copy of its trigger", "trigger", f.Rel)
				continue
			}
			for _, member := range chain {
				a.logger.Debug("Reading chain file", "file", member.Name, "trigger", f.Name)
				if err := a.emit(member, KindChain); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, c := range scan.Companions.Pending() {
		a.logger.Debug("Dropping companion without primary", "file", c.Rel, "prefix", c.Prefix())
	}

	a.logger.Info("Copied all files to internal buffer", "blocks", a.buf.Len())
	return a.buf, nil
}

type aggregator struct {
	logger  *log.Logger
	onBlock func(Block)
	read    func(string) ([]byte, error)
	buf     *Buffer
	emitted map[string]bool
}

func (a *aggregator) emit(f *Fragment, kind BlockKind) error {
	content, err := a.read(f.Path)
	if err != nil {
		return diag.Wrap(diag.ReadFailed, f.Path, err)
	}
	a.append(Block{Name: f.Name, Rel: f.Rel, Kind: kind, Content: content})
	return nil
}

func (a *aggregator) append(blk Block) {
	a.buf.Append(blk)
	if a.onBlock != nil {
		a.onBlock(blk)
	}
}

// chained marks the chain of trigger as emitted and reports whether it
// already was.
func (a *aggregator) chained(trigger string) bool {
	if a.emitted[trigger] {
		return true
	}
	a.emitted[trigger] = true
	return false
}
