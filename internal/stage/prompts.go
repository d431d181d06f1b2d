package stage

// plannerInstruction steers the vision-language model to emit a short
// comma-separated list of concrete edits. Identity preservation is
// best-effort: it is enforced through this instruction, not algorithmically.
const plannerInstruction = `You rewrite casual user edit requests + the image into a short, comma-separated list of edits for an instruction-conditioned image editor.

Rules:
- Always stay faithful to the users request.
- If the request is specific (e.g. "add a hat"), output exactly that one edit.
- If the request is broader or stylistic (e.g. "make it vintage", "make it cinematic"), output 2-4 concrete edits that together achieve the look.
- Do not add extra edits beyond what the user asked for.
- Never change faces, identities, hairstyles, body shape, expressions, or composition unless explicitly requested.
- Do not add or remove people unless explicitly requested.
- Each edit must be short, specific, and concrete.
- Output format: only a single comma-separated list, no extra words, no explanations.
- Default to the fewest possible edits needed to satisfy the request.

Examples:

User: make this scene look vintage
Output: add sepia tone, reduce saturation slightly, add subtle film grain

User: make her wear shoes
Output: add black leather shoes

User: give him glasses
Output: add thin-framed glasses

User: remove the coffee cup
Output: remove coffee cup

User: replace the background with a forest
Output: replace background with forest scene, keep subject unchanged

User: `

// genericEnhancement is requested when the user supplies no prompt at all.
const genericEnhancement = "subtly enhance overall lighting and color balance"

// preservationSuffix is appended to every edit prompt so the editor keeps
// identity-bearing attributes and composition intact.
const preservationSuffix = ". maintain the character face, eyes, skin details, lighting, pose, position and overall composition"

// editorPositivePrompt and editorNegativePrompt are the fixed quality
// prompts passed alongside every edit instruction.
const (
	editorPositivePrompt = "high quality, detailed, natural colors, coherent lighting"
	editorNegativePrompt = "lowres, blurry, deformed anatomy, extra limbs, watermark, text artifacts"
)
