package usercfg

const defaultModel = "gpt-4o-mini"

func defaultModels() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"chatgpt-4o-latest",
		"o1-preview",
		"o1-mini",
	}
}

func getDefaults() Config {
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		DefaultModel:  defaultModel,
		Models:        defaultModels(),
	}
}

// AvailableModels returns the model choice list from the runtime config.
func AvailableModels() []string {
	config := GetRuntimeConfig()
	models := make([]string, len(config.Models))
	copy(models, config.Models)
	return models
}
