package faq

import "time"

// Default knobs shared by the server and the tests.
const (
	DefaultDistanceThreshold = 0.4
	DefaultGenerativeTimeout = 60 * time.Second
	DefaultTopK              = 4
	DefaultGeneratorTopK     = 3
	DefaultUngroundedAnswer  = "No tengo información suficiente sobre eso en mis documentos."
)

// Messages are the fixed replies used when no tier can answer.
type Messages struct {
	InternalError     string
	GenerativeFailure string
	NoAnswer          string
	EmptyQuestion     string
}

// DefaultMessages returns the Spanish replies shipped with the service.
func DefaultMessages() Messages {
	return Messages{
		InternalError:     "Error: el modelo generativo está activado pero no se inicializó correctamente.",
		GenerativeFailure: "Lo siento, ocurrió un error al procesar tu pregunta con el modelo generativo.",
		NoAnswer:          "Lo siento, no tengo una respuesta disponible para esa pregunta.",
		EmptyQuestion:     "Por favor escribe algo.",
	}
}

// Tiers toggles the two answering strategies.
type Tiers struct {
	KNN        bool
	Generative bool
}

// SelectorConfig drives the model selection policy.
type SelectorConfig struct {
	Tiers              Tiers
	DistanceThreshold  float64
	GenerativeTimeout  time.Duration
	UngroundedSentinel string
	Messages           Messages
}

// AnswererConfig configures the retrieval-augmented answerer.
type AnswererConfig struct {
	Model              string
	Temperature        float32
	Prompt             string
	TopK               int
	MaxContextTokens   int
	UngroundedSentinel string
}

// WriteBackConfig controls the learning loop.
type WriteBackConfig struct {
	Enabled           bool
	Async             bool
	PersistUngrounded bool
}

// Config holds runtime knobs for the FAQ service.
type Config struct {
	TopRecommendations int
	WriteBack          WriteBackConfig
	Messages           Messages
	RefreshInterval    time.Duration
	MaxGenerate        int
}

// GeneratorConfig configures synthetic FAQ generation.
type GeneratorConfig struct {
	Model       string
	Temperature float32
	Prompt      string
	Topics      []string
	TopK        int
	MaxAttempts int
}

// DefaultPrompt is the grounding prompt; {context} and {question} are substituted.
const DefaultPrompt = `Actúa como un asistente virtual experto y muy servicial de la Universidad Veracruzana.
Tu misión es proporcionar respuestas detalladas y completas, utilizando únicamente la información encontrada en el CONTEXTO proporcionado.

Sigue estas reglas estrictamente:
1. Extrae y sintetiza toda la información relevante del contexto que responda a la pregunta del usuario. No omitas requisitos, fechas ni pasos mencionados.
2. Estructura tu respuesta de forma clara. Si la pregunta es sobre un proceso, descríbelo paso a paso. Si se listan requisitos, usa viñetas.
3. Explica los conceptos con tus propias palabras, basadas en el contexto, para que la respuesta sea coherente.
4. Si la información necesaria no se encuentra en el CONTEXTO, responde única y exclusivamente con la frase: "{sentinel}" No adivines ni añadas información externa.

---
CONTEXTO:
{context}
---
PREGUNTA DEL USUARIO:
{question}
---

RESPUESTA DETALLADA Y COMPLETA:`

// DefaultGeneratorPrompt asks for one JSON question/answer pair grounded in {context}.
const DefaultGeneratorPrompt = `Eres un asistente experto en la creación de conjuntos de datos para chatbots universitarios.
Genera un par de pregunta y respuesta basado estrictamente en el contexto proporcionado.

El estudiante que hace la pregunta está interesado en datos académicos, trámites y costos.

CONTEXTO:
---
{context}
---

INSTRUCCIONES:
1. Basándote únicamente en el contexto, genera una pregunta realista que haría el estudiante.
2. Genera una respuesta clara y concisa a esa pregunta, usando solo la información del contexto.
3. Si el contexto es muy pobre, genera una pregunta sobre el tema general y una respuesta breve indicando que los detalles se deben consultar en ventanilla.
4. Responde en formato JSON con las claves "pregunta" y "respuesta", sin texto antes ni después.`

// DefaultTopics are the seed topics used to pull context for generation.
func DefaultTopics() []string {
	return []string{
		"inscripción", "reinscripción", "servicio social", "trámites de titulación",
		"cuotas y pagos", "aranceles", "credencial de estudiante", "baja temporal",
		"baja definitiva", "movilidad estudiantil", "examen de salud integral",
		"seguro facultativo", "cambio de programa educativo", "equivalencia de estudios",
		"traslado escolar", "acreditación de idioma", "experiencia recepcional",
		"certificado de estudios", "cédula profesional", "carta de pasante",
		"movilidad nacional", "movilidad internacional",
	}
}
