package types

// Model represents a discoverable predictor model file on disk.
type Model struct {
	// Stable identifier for the model (e.g., scut, mebeauty).
	// example: scut
	ID string `json:"id" example:"scut"`
	// Human-friendly name.
	// example: SCUT-FBP5500 (ResNet50)
	Name string `json:"name" example:"SCUT-FBP5500 (ResNet50)"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/beauty_model_scut_resnet50.tflite
	Path string `json:"path" example:"/home/user/models/beauty_model_scut_resnet50.tflite"`
	// Training dataset the model was fitted on.
	// example: scut-fbp5500
	Dataset string `json:"dataset,omitempty" example:"scut-fbp5500"`
}
