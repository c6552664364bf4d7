package main

import (
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filtering"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/validation"
)

func newOperatorsCmd(a *app) *cobra.Command {
	var withValidation bool
	cmd := &cobra.Command{
		Use:   "operators [type...]",
		Short: "List the operators each field type accepts",
		RunE: func(_ *cobra.Command, args []string) error {
			types := operators.FieldTypes()
			if len(args) > 0 {
				types = types[:0]
				for _, arg := range args {
					t := operators.ParseFieldType(arg)
					if string(t) != arg {
						return errors.Errorf("unknown field type %q", arg)
					}
					types = append(types, t)
				}
			}
			registry := operators.NewDefaultRegistry()
			result := make(map[string][]string, len(types))
			for _, t := range types {
				keys := []string{}
				for _, op := range registry.OperatorsFor(t, withValidation).List() {
					keys = append(keys, op.Key())
				}
				result[string(t)] = keys
			}
			return a.writeJSON(result)
		},
	}
	cmd.Flags().BoolVar(&withValidation, "validation", false, "include validation-only operators")
	return cmd
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <filter.json|->",
		Short: "Parse a filter and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, collection, err := a.prepare()
			if err != nil {
				return err
			}
			defer s.Close()
			mode, err := a.mode()
			if err != nil {
				return err
			}
			vars, err := a.variables()
			if err != nil {
				return err
			}
			raw, err := a.readJSON(args[0])
			if err != nil {
				return err
			}
			node, err := s.ParseFilter(cmd.Context(), collection, raw, mode, vars)
			if err != nil {
				return err
			}
			return a.writeJSON(f.ToRaw(node))
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	var (
		or      bool
		flatten bool
	)
	cmd := &cobra.Command{
		Use:   "merge <filter.json>...",
		Short: "Merge filters into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, collection, err := a.prepare()
			if err != nil {
				return err
			}
			defer s.Close()
			// Merged output keeps dynamic variables as tokens.
			nodes := make([]f.Node, 0, len(args))
			for _, name := range args {
				raw, err := a.readJSON(name)
				if err != nil {
					return err
				}
				node, err := s.ParseFilter(cmd.Context(), collection, raw, f.ResolveDeferred, dynvar.Context{})
				if err != nil {
					return errors.Wrap(err, name)
				}
				nodes = append(nodes, node)
			}
			var merged f.Node
			if or {
				merged = f.MergeOr(nodes...)
			} else {
				merged = f.Merge(nodes...)
			}
			if flatten {
				merged = f.Flatten(merged)
			}
			return a.writeJSON(f.ToRaw(merged))
		},
	}
	cmd.Flags().BoolVar(&or, "or", false, "combine with _or instead of _and")
	cmd.Flags().BoolVar(&flatten, "flatten", false, "splice nested groups with the same combinator")
	return cmd
}

type sqlOutput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func newSQLCmd(a *app) *cobra.Command {
	var permissions []string
	cmd := &cobra.Command{
		Use:   "sql <filter.json|->",
		Short: "Compile a filter, with permission filters, to a PostgreSQL WHERE fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, collection, err := a.prepare()
			if err != nil {
				return err
			}
			defer s.Close()
			mode, err := a.mode()
			if err != nil {
				return err
			}
			vars, err := a.variables()
			if err != nil {
				return err
			}
			req := filtering.QueryRequest{Collection: collection, Mode: mode, Variables: vars}
			if req.Filter, err = a.readJSON(args[0]); err != nil {
				return err
			}
			for _, name := range permissions {
				raw, err := a.readJSON(name)
				if err != nil {
					return err
				}
				req.Permissions = append(req.Permissions, raw)
			}
			sql, params, err := s.Query(cmd.Context(), req)
			if err != nil {
				return err
			}
			if params == nil {
				params = []any{}
			}
			return a.writeJSON(sqlOutput{SQL: sql, Params: params})
		},
	}
	cmd.Flags().StringSliceVarP(&permissions, "permission", "p", nil, "permission filter file, repeatable")
	return cmd
}

type violationOutput struct {
	Field      string                `json:"field"`
	Constraint validation.Constraint `json:"constraint"`
	Message    string                `json:"message"`
}

type validateOutput struct {
	Valid      bool              `json:"valid"`
	Violations []violationOutput `json:"violations"`
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		rule       string
		requireAll bool
	)
	cmd := &cobra.Command{
		Use:   "validate <payload.json|->",
		Short: "Validate a record payload against the collection's field constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, collection, err := a.prepare()
			if err != nil {
				return err
			}
			defer s.Close()
			raw, err := a.readJSON(args[0])
			if err != nil {
				return err
			}
			payload, ok := raw.(map[string]any)
			if !ok {
				return errors.Errorf("payload must be an object, got %T", raw)
			}
			var opts []filtering.PayloadOption
			if rule != "" {
				raw, err := a.readJSON(rule)
				if err != nil {
					return err
				}
				vars, err := a.variables()
				if err != nil {
					return err
				}
				opts = append(opts, filtering.WithValidationFilter(raw, vars))
				if requireAll {
					opts = append(opts, filtering.RequireFilterFields())
				}
			}
			result, err := s.ValidatePayload(cmd.Context(), collection, payload, opts...)
			if err != nil {
				return err
			}
			out := validateOutput{Valid: result.Valid, Violations: []violationOutput{}}
			for _, v := range result.Violations {
				out.Violations = append(out.Violations, violationOutput{
					Field:      v.Field,
					Constraint: v.Constraint,
					Message:    v.Message,
				})
			}
			if err := a.writeJSON(out); err != nil {
				return err
			}
			if !result.Valid {
				return errors.Errorf("payload has %d violation(s)", len(result.Violations))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rule, "filter", "", "validation filter file, may use _regex")
	cmd.Flags().BoolVar(&requireAll, "require-all", false, "fail when a field the validation filter names is missing")
	return cmd
}

func (a *app) prepare() (*filtering.Service, string, error) {
	collection, err := a.collection()
	if err != nil {
		return nil, "", err
	}
	s, err := a.service()
	if err != nil {
		return nil, "", err
	}
	return s, collection, nil
}

func (a *app) readJSON(name string) (any, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	return value, nil
}

func (a *app) writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	data = append(data, '\n')
	_, err = a.stdout.Write(data)
	return err
}
