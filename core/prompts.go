package core

// ExamplePrompt is a canned question offered on an empty thread.
type ExamplePrompt struct {
	Heading    string
	Subheading string
	Message    string
}

// ExamplePrompts are shown before the first message of a session.
var ExamplePrompts = []ExamplePrompt{
	{
		Heading:    "นิยามการประมวลผลภาพ",
		Subheading: "และความสำคัญ",
		Message:    "นิยามการประมวลผลข้อมูลภาพ หรือ การประมวลผลภาพ (Image Processing) หมายถึงอะไร และทำไมจึงต้องประมวลผลภาพ",
	},
	{
		Heading:    "การแปลงภาพ",
		Subheading: "Unitary และ Fourier",
		Message:    "Unitary transform ต่างจาก Fourier transform อย่างไร ในบริบทของการประมวลผลภาพ",
	},
	{
		Heading:    "สถิติภาพ",
		Subheading: "ความแปรปรวนร่วม",
		Message:    "อธิบายค่าความแปรปรวนร่วม (Covariance) และนำไปใช้ประโยชน์ในการประมวลผลภาพได้อย่างไร",
	},
	{
		Heading:    "ตัวกรองภาพ",
		Subheading: "Sharpen Filters",
		Message:    "ตัวกรองปรับสว่าง (Sharpen Filters) มีวัตถุประสงค์อะไรบ้าง และยกตัวอย่างหน้ากากตัวกรองความถี่สูงแบบเชิงเส้น",
	},
}

// MockUser is the account used when authentication is bypassed for local
// development.
var MockUser = User{
	ID:    "user-1",
	Name:  "Prudtipon",
	Email: "user@example.com",
	Image: "https://picsum.photos/seed/user/32/32",
}

// MockResponses are the canned answers of the local mock backend.
var MockResponses = []string{
	"I can help you with that! This is a simulated streaming response to demonstrate the UI capabilities.",
	"That's an interesting perspective. Could you elaborate more on what you're trying to achieve?",
	"Here is a list of things I can do:\n\n1. Simulate streaming text.\n2. maintain chat history in memory.\n3. Look good while doing it.",
	"I'm just a mock frontend interface right now, but I'm ready to be connected to a real LLM backend like Gemini!",
	"Based on my calculations (which are fake), the answer is 42.",
}
