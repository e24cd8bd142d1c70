package migrations

// All returns the migration chain in application order. The chain is a
// strict linked list; ids are opaque and stable across deployments.
func All() []Revision {
	return []Revision{
		{ID: "cf03bd6bae1d", Parent: "", Name: "tracing_core", Up: upTracingCore, Down: downTracingCore},
		{ID: "10460e46d750", Parent: "cf03bd6bae1d", Name: "datasets_and_experiments", Up: upDatasets, Down: downDatasets},
		{ID: "3be8647b87d8", Parent: "10460e46d750", Name: "users_and_secrets", Up: upUsers, Down: downUsers},
		{ID: "cd164e83824f", Parent: "3be8647b87d8", Name: "project_sessions", Up: upProjectSessions, Down: downProjectSessions},
		{ID: "4ded9e43755f", Parent: "cd164e83824f", Name: "annotation_config", Up: upAnnotationConfig, Down: downAnnotationConfig},
		{ID: "bc8fea3c2bc8", Parent: "4ded9e43755f", Name: "auth_method", Up: upAuthMethod, Down: downAuthMethod},
		{ID: "2f9d1a65945f", Parent: "bc8fea3c2bc8", Name: "ldap_auth", Up: upLDAP, Down: downLDAP},
		{ID: "8a3764fe7f1a", Parent: "2f9d1a65945f", Name: "content_hash_and_external_id", Up: upContentHash, Down: downContentHash},
		{ID: "e76e491bf2a9", Parent: "8a3764fe7f1a", Name: "experiment_example_junction", Up: upExperimentJunction, Down: downExperimentJunction},
		{ID: "a20694b15f82", Parent: "e76e491bf2a9", Name: "prompts_and_generative_models", Up: upPrompts, Down: downPrompts},
		{ID: "8b885da28ff9", Parent: "a20694b15f82", Name: "json_path_template_format", Up: upPromptFormats, Down: downPromptFormats},
	}
}
