package descriptor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/spacehunters/contracts/internal/secrets"
)

// BuildOptions configures Build.
type BuildOptions struct {
	Mode   Mode
	Logger *slog.Logger

	// CheckKeys makes strict mode reject signer credentials that are not
	// hex secp256k1 private keys. Without it they are only logged.
	CheckKeys bool
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Mode == "" {
		o.Mode = ModeStrict
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Build validates spec, resolves every credential reference it uses exactly
// once, and returns the immutable descriptor.
//
// Credential values are opaque. In strict mode all missing references are
// reported together in a MissingSecretsError; in lenient mode they are logged
// and passed through empty. Signer credentials that do not look like private
// keys are logged in both modes, and fail with InvalidCredentialError only in
// strict mode with CheckKeys set.
func Build(ctx context.Context, spec Spec, resolver secrets.Resolver, opts BuildOptions) (*Descriptor, error) {
	opts = opts.withDefaults()
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b := &builder{
		ctx:      ctx,
		resolver: resolver,
		opts:     opts,
		values:   make(map[secrets.Ref]string),
	}

	d := &Descriptor{
		mode:  opts.Mode,
		index: make(map[string]int, len(spec.Networks)),
		reporting: Reporting{
			Enabled:  spec.Reporting.Enabled,
			Currency: spec.Reporting.Currency,
		},
	}

	for _, c := range spec.Compilers {
		d.compilers = append(d.compilers, CompilerSetting{
			Version:   c.Version,
			Optimizer: Optimizer{Enabled: c.Optimizer.Enabled, Runs: c.Optimizer.Runs},
		})
	}

	sets := make(map[string]SignerSet, len(spec.SignerSets))
	for _, s := range spec.SignerSets {
		set := SignerSet{Name: s.Name}
		for _, slot := range s.Slots {
			set.Slots = append(set.Slots, Slot{Name: slot.Name, Ref: secrets.Ref(slot.Ref)})
		}
		sets[s.Name] = set
		d.signerSets = append(d.signerSets, set)
	}

	for _, n := range spec.Networks {
		network := Network{
			Name:      n.Name,
			URL:       n.URL,
			ChainID:   n.ChainID,
			SignerSet: n.SignerSet,
		}
		if n.Forking != nil {
			network.Forking = &Forking{URL: n.Forking.URL, BlockNumber: n.Forking.BlockNumber}
		}
		if n.SignerSet != "" {
			for _, slot := range sets[n.SignerSet].Slots {
				network.Accounts = append(network.Accounts, b.credential(slot.Name, slot.Ref, true))
			}
		}
		d.index[strings.ToLower(n.Name)] = len(d.networks)
		d.networks = append(d.networks, network)
	}

	if spec.Verification.APIKey != "" {
		d.verification.APIKey = b.credential("", secrets.Ref(spec.Verification.APIKey), false)
	}

	if err := b.err(); err != nil {
		return nil, err
	}

	opts.Logger.Debug("toolchain descriptor built",
		slog.String("mode", string(d.mode)),
		slog.Int("compilers", len(d.compilers)),
		slog.Int("networks", len(d.networks)),
		slog.Int("secrets", len(b.values)),
	)

	return d, nil
}

type builder struct {
	ctx      context.Context
	resolver secrets.Resolver
	opts     BuildOptions

	values  map[secrets.Ref]string
	missing []secrets.Ref
	invalid []error
	failed  []error
}

// credential resolves ref once and records any problem for err.
func (b *builder) credential(slot string, ref secrets.Ref, privateKey bool) Credential {
	value, seen := b.values[ref]
	if !seen {
		value = b.resolve(ref)
		b.values[ref] = value
		if value != "" && privateKey && !isPrivateKey(value) {
			if b.opts.Mode == ModeStrict && b.opts.CheckKeys {
				b.invalid = append(b.invalid, &InvalidCredentialError{Slot: slot, Ref: ref})
			} else {
				b.opts.Logger.Warn("credential is not a valid private key",
					slog.String("slot", slot),
					slog.String("ref", string(ref)),
				)
			}
		}
	}
	return Credential{Slot: slot, Ref: ref, value: value}
}

func (b *builder) resolve(ref secrets.Ref) string {
	value, err := b.resolver.Resolve(b.ctx, ref)
	if err == nil {
		return value
	}

	if errors.Is(err, secrets.ErrSecretNotFound) {
		if b.opts.Mode == ModeStrict {
			b.missing = append(b.missing, ref)
		} else {
			b.opts.Logger.Warn("secret not set; passing through empty value",
				slog.String("ref", string(ref)),
			)
		}
		return ""
	}

	if b.opts.Mode == ModeStrict {
		b.failed = append(b.failed, err)
	} else {
		b.opts.Logger.Warn("secret lookup failed; passing through empty value",
			slog.String("ref", string(ref)),
			slog.String("error", err.Error()),
		)
	}
	return ""
}

func (b *builder) err() error {
	var errs []error
	if len(b.missing) > 0 {
		errs = append(errs, &MissingSecretsError{Refs: b.missing})
	}
	errs = append(errs, b.invalid...)
	errs = append(errs, b.failed...)
	return errors.Join(errs...)
}

// isPrivateKey reports whether v is a hex secp256k1 private key, with or
// without the 0x prefix.
func isPrivateKey(v string) bool {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	_, err := crypto.HexToECDSA(v)
	return err == nil
}
