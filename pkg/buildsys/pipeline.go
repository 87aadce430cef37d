package buildsys

import "context"

// Build runs every stage in order and stops at the first failure. A failed build is not resumable;
// run it again from the start (optionally after Clean).
func (b *Builder) Build(ctx context.Context) error {
	stages := []func(context.Context) error{
		b.EnsureDirs,
		b.InitModule,
		b.CompileLibrary,
		b.GenerateDef,
		b.GenerateImportLib,
		b.CopyPrimary,
		b.CopyAuxiliary,
	}
	if b.Downstream {
		stages = append(stages, b.DownstreamBuild)
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := stage(ctx); err != nil {
			return err
		}
	}

	return nil
}
