// Package secrets resolves ${secret:name} references in configuration values.
//
// A Resolver consults its sources in order. EnvSource reads environment
// variables such as TOLLGATE_SECRET_REDIS_PASSWORD for the name
// "redis-password". FileSource reads one file per secret from a mounted
// directory and refuses files readable by group or others.
//
//	r := secrets.NewResolver(
//		secrets.NewEnvSource("TOLLGATE_SECRET_"),
//		secrets.NewFileSource("/run/secrets"),
//	)
//	if err := r.ResolveFields(ctx, &cfg.Cache.Redis.Password); err != nil {
//		return err
//	}
//
// Values that are not references pass through unchanged.
package secrets
