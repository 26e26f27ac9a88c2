package project

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/mr-martian/transfuse/blockextract"
	"github.com/mr-martian/transfuse/codec"
	"github.com/mr-martian/transfuse/injector"
	"github.com/mr-martian/transfuse/sentinel"
	"github.com/mr-martian/transfuse/state"
	"github.com/mr-martian/transfuse/style"
	"github.com/mr-martian/transfuse/styler"
	"github.com/mr-martian/transfuse/tagpolicy"
	"github.com/mr-martian/transfuse/treeutil"
	"github.com/mr-martian/transfuse/whitespace"
)

// Extract runs the core pipeline's extract half (spec §4's resolved stage
// ordering) against a document parsed by ParseInput: Whitespace Preserver
// save, Styler render, protected-inline promotion, style cleanup, a
// reparse into a second tree, then Block Extraction streamed to out in the
// chosen wire variant. Each named project artifact is written as the
// stage that produces it finishes.
func (p *Project) Extract(ctx context.Context, env *state.LocalEnv, r io.Reader, srcName, format string, policy *tagpolicy.Policy, variant codec.Variant, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var log *zap.Logger
	if env != nil {
		log = env.Log
	}

	sentinel.ResetCounter()

	doc, raw, err := ParseInput(r, srcName, format)
	if err != nil {
		return err
	}
	root := doc.Root()

	if err := os.WriteFile(p.OriginalPath(), raw, 0644); err != nil {
		return fmt.Errorf("write original: %w", err)
	}
	if env != nil && env.Rpt != nil {
		env.Rpt.Store(fileOriginal, p.OriginalPath())
	}

	whitespace.Save(root, policy)

	store, err := style.Open(p.StateSqlitePath())
	if err != nil {
		return fmt.Errorf("open style store: %w", err)
	}
	defer store.Close()
	if env != nil && env.Rpt != nil {
		env.Rpt.Store(fileStateSqlite, p.StateSqlitePath())
	}

	if err := store.Begin(); err != nil {
		return fmt.Errorf("begin style store transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = store.Rollback()
		}
	}()

	rendered, err := styler.Render(root, policy, store)
	if err != nil {
		return fmt.Errorf("render styles: %w", err)
	}

	rendered, err = styler.PromoteProtected(rendered, store)
	if err != nil {
		return fmt.Errorf("promote protected inlines: %w", err)
	}

	rendered = styler.Cleanup(rendered)

	if err := store.Commit(); err != nil {
		return fmt.Errorf("commit style store transaction: %w", err)
	}
	committed = true

	styledXML := treeutil.OpenTag(root, false, true) + rendered + treeutil.CloseTag(root)
	if err := os.WriteFile(p.StyledXMLPath(), []byte(styledXML), 0644); err != nil {
		return fmt.Errorf("write styled.xml: %w", err)
	}
	if env != nil && env.Rpt != nil {
		env.Rpt.Store(fileStyledXML, p.StyledXMLPath())
		if env.Debug {
			env.Rpt.StoreData("styled.tree.txt", []byte(dumpTree(root)))
		}
	}

	styledDoc := etree.NewDocument()
	if err := styledDoc.ReadFromString(styledXML); err != nil {
		return fmt.Errorf("reparse styled document: %w", err)
	}
	styledRoot := styledDoc.Root()

	cw, err := codec.NewWriter(out, variant, p.Dir)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}
	if err := blockextract.Extract(styledRoot, policy, cw, false); err != nil {
		return fmt.Errorf("extract blocks: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("flush stream: %w", err)
	}

	if err := styledDoc.WriteToFile(p.ContentXMLPath()); err != nil {
		return fmt.Errorf("write content.xml: %w", err)
	}
	if env != nil && env.Rpt != nil {
		env.Rpt.Store(fileContentXML, p.ContentXMLPath())
	}

	if log != nil {
		log.Debug("extraction complete", zap.String("project", p.Dir), zap.String("format", format))
	}
	return nil
}

// Inject reads a translated block stream from r, splices it into the
// project's content.xml via the Injector, writes the reconstructed tree
// to injected.xml, and returns it for a format adapter to serialize as
// injected.<ext>.
func (p *Project) Inject(ctx context.Context, env *state.LocalEnv, r io.Reader, variant codec.Variant, policy *tagpolicy.Policy) (*etree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var log *zap.Logger
	if env != nil {
		log = env.Log
	}

	content, err := os.ReadFile(p.ContentXMLPath())
	if err != nil {
		return nil, fmt.Errorf("read content.xml: %w", err)
	}

	store, err := style.Open(p.StateSqlitePath())
	if err != nil {
		return nil, fmt.Errorf("open style store: %w", err)
	}
	defer store.Close()

	reader, headerDir, _, err := codec.NewReader(r, variant)
	if err != nil {
		return nil, fmt.Errorf("read stream header: %w", err)
	}
	if log != nil && headerDir != "" && headerDir != p.Dir {
		log.Warn("stream header project directory differs from the one in use",
			zap.String("header", headerDir), zap.String("project", p.Dir))
	}

	doc, warnings, err := injector.Inject(string(content), reader, store, policy, log)
	if err != nil {
		return nil, fmt.Errorf("inject: %w", err)
	}
	if warnErr := warnings.Err(); warnErr != nil && log != nil {
		log.Warn("inject completed with non-fatal warnings", zap.Error(warnErr))
	}

	if err := doc.WriteToFile(p.InjectedXMLPath()); err != nil {
		return nil, fmt.Errorf("write injected.xml: %w", err)
	}
	if env != nil && env.Rpt != nil {
		env.Rpt.Store(fileInjectedXML, p.InjectedXMLPath())
		if env.Debug && doc.Root() != nil {
			env.Rpt.StoreData("injected.tree.txt", []byte(dumpTree(doc.Root())))
		}
	}
	return doc, nil
}
